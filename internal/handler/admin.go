package handler

import (
    "context"
    "database/sql"
    "errors"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/parkwise/parking/internal/model"
    "github.com/parkwise/parking/internal/pricing"
    "github.com/parkwise/parking/internal/repository"
)

// AdminHandler covers garage management: lots, gates, slots and
// pricing rules.  All of its routes sit behind the ADMIN role.
type AdminHandler struct {
    Lots    *repository.LotRepo
    Slots   *repository.SlotRepo
    Pricing *repository.PricingRuleRepo
}

func NewAdminHandler(lots *repository.LotRepo, slots *repository.SlotRepo, rules *repository.PricingRuleRepo) *AdminHandler {
    return &AdminHandler{Lots: lots, Slots: slots, Pricing: rules}
}

// ----- DTOs -----

type createLotReq struct {
    Location string `json:"location"`
    Floors   int    `json:"floors"`
}

type createGateReq struct {
    Floor int    `json:"floor"`
    Type  string `json:"type"` // ENTRY | EXIT
}

type createSlotReq struct {
    LotID       uint64 `json:"lot_id"`
    Floor       int    `json:"floor"`
    Number      int    `json:"number"`
    VehicleType string `json:"vehicle_type"`
}

type pricingRuleReq struct {
    VehicleType string `json:"vehicle_type"`
    FreeMinutes int    `json:"free_minutes"`
    RateCents   int64  `json:"rate_cents_per_hour"`
}

// CreateLot registers a new parking lot.
func (h *AdminHandler) CreateLot(c echo.Context) error {
    var req createLotReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Location = strings.TrimSpace(req.Location)
    if req.Location == "" || req.Floors < 1 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "location and a positive floor count required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    lot, err := h.Lots.Create(ctx, req.Location, req.Floors)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create lot failed"})
    }
    return c.JSON(http.StatusCreated, lotBody(lot))
}

// ListLots returns every lot.
func (h *AdminHandler) ListLots(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    lots, err := h.Lots.List(ctx)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list lots failed"})
    }
    out := make([]echo.Map, 0, len(lots))
    for _, l := range lots {
        out = append(out, lotBody(l))
    }
    return c.JSON(http.StatusOK, echo.Map{"lots": out})
}

// CreateGate adds a gate to a lot.
func (h *AdminHandler) CreateGate(c echo.Context) error {
    lotID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || lotID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
    }
    var req createGateReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    gt := strings.ToUpper(strings.TrimSpace(req.Type))
    if gt != "ENTRY" && gt != "EXIT" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "type must be ENTRY or EXIT"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    lot, err := h.Lots.GetByID(ctx, lotID)
    if err != nil {
        if errors.Is(err, repository.ErrLotNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "lot not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load lot failed"})
    }
    if req.Floor < 0 || req.Floor >= lot.Floors {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "floor out of range for lot"})
    }

    gate, err := h.Lots.CreateGate(ctx, lotID, req.Floor, gt)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create gate failed"})
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "id":     gate.ID,
        "lot_id": gate.LotID,
        "floor":  gate.Floor,
        "type":   gate.Type,
    })
}

// CreateSlot registers a parking slot.  Duplicate lot/floor/number
// combinations are rejected with 409.
func (h *AdminHandler) CreateSlot(c echo.Context) error {
    var req createSlotReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    vt := model.VehicleType(strings.ToUpper(strings.TrimSpace(req.VehicleType)))
    if !model.ValidVehicleType(string(vt)) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "vehicle_type must be BIKE, CAR or TRUCK"})
    }
    if req.LotID == 0 || req.Number < 1 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "lot_id and a positive number required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    lot, err := h.Lots.GetByID(ctx, req.LotID)
    if err != nil {
        if errors.Is(err, repository.ErrLotNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "lot not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load lot failed"})
    }
    if req.Floor < 0 || req.Floor >= lot.Floors {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "floor out of range for lot"})
    }

    slot, err := h.Slots.Create(ctx, req.LotID, req.Floor, req.Number, vt)
    if err != nil {
        if errors.Is(err, repository.ErrSlotExists) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "slot already exists"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create slot failed"})
    }
    return c.JSON(http.StatusCreated, slotBody(slot))
}

// ListSlots returns every slot of a lot with its live status.
func (h *AdminHandler) ListSlots(c echo.Context) error {
    lotID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || lotID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid lot id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    slots, err := h.Slots.ListByLot(ctx, lotID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list slots failed"})
    }
    out := make([]echo.Map, 0, len(slots))
    for _, s := range slots {
        out = append(out, slotBody(s))
    }
    return c.JSON(http.StatusOK, echo.Map{"lot_id": lotID, "slots": out})
}

// DeleteSlot removes an AVAILABLE slot.  Occupied slots cannot be
// removed; freeing them first is the operator's job.
func (h *AdminHandler) DeleteSlot(c echo.Context) error {
    slotID, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || slotID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid slot id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Slots.Delete(ctx, slotID); err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusConflict, echo.Map{"error": "slot not found or occupied"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete slot failed"})
    }
    return c.NoContent(http.StatusNoContent)
}

// UpsertPricingRule sets the fee schedule for one vehicle type.
func (h *AdminHandler) UpsertPricingRule(c echo.Context) error {
    var req pricingRuleReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    vt := model.VehicleType(strings.ToUpper(strings.TrimSpace(req.VehicleType)))
    if !model.ValidVehicleType(string(vt)) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "vehicle_type must be BIKE, CAR or TRUCK"})
    }
    if req.FreeMinutes < 0 || req.RateCents < 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "free_minutes and rate must not be negative"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    rule, err := h.Pricing.Upsert(ctx, vt, req.FreeMinutes, req.RateCents)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save pricing rule failed"})
    }
    return c.JSON(http.StatusOK, ruleBody(rule))
}

// ListPricingRules returns the configured rules; types without a rule
// use the built-in defaults shown by the pricing package.
func (h *AdminHandler) ListPricingRules(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    rules, err := h.Pricing.List(ctx)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list pricing rules failed"})
    }
    out := make([]echo.Map, 0, len(rules))
    for _, r := range rules {
        out = append(out, ruleBody(r))
    }
    return c.JSON(http.StatusOK, echo.Map{"rules": out})
}

func lotBody(l model.ParkingLot) echo.Map {
    return echo.Map{"id": l.ID, "location": l.Location, "floors": l.Floors}
}

func slotBody(s model.ParkingSlot) echo.Map {
    return echo.Map{
        "id":     s.ID,
        "lot_id": s.LotID,
        "floor":  s.Floor,
        "number": s.Number,
        "type":   s.Type,
        "status": s.Status,
    }
}

func ruleBody(r model.PricingRule) echo.Map {
    return echo.Map{
        "vehicle_type":        r.Type,
        "free_minutes":        r.FreeMinutes,
        "rate_cents_per_hour": r.RateCentsPerHour,
        "rate_per_hour":       pricing.FormatCents(r.RateCentsPerHour),
    }
}
