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

    "github.com/parkwise/parking/internal/allocation"
    "github.com/parkwise/parking/internal/model"
    "github.com/parkwise/parking/internal/pricing"
    "github.com/parkwise/parking/internal/repository"
    "github.com/parkwise/parking/internal/service"
)

// TicketHandler exposes the ticket lifecycle over HTTP: entry at the
// gate, fee preview, pay-and-exit and receipts.  The lot repository is
// needed to resolve the gate a request came through, everything else
// goes through the lifecycle service.
type TicketHandler struct {
    Svc  *service.TicketService
    Lots *repository.LotRepo
}

func NewTicketHandler(svc *service.TicketService, lots *repository.LotRepo) *TicketHandler {
    return &TicketHandler{Svc: svc, Lots: lots}
}

// ----- DTOs -----

type enterReq struct {
    Plate       string `json:"plate"`
    VehicleType string `json:"vehicle_type"` // BIKE | CAR | TRUCK
    OwnerEmail  string `json:"owner_email"`
    LotID       uint64 `json:"lot_id"`
    GateID      uint64 `json:"gate_id"`
}

// Enter admits a vehicle through a gate and returns the opened ticket.
// Conflicts are reported with 409: a plate that is already inside, or a
// lot with no free slot of the right type left.
func (h *TicketHandler) Enter(c echo.Context) error {
    var req enterReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if strings.TrimSpace(req.Plate) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "plate required"})
    }
    vt := model.VehicleType(strings.ToUpper(strings.TrimSpace(req.VehicleType)))
    if !model.ValidVehicleType(string(vt)) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "vehicle_type must be BIKE, CAR or TRUCK"})
    }
    if req.LotID == 0 || req.GateID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "lot_id and gate_id required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    gate, err := h.Lots.GateByID(ctx, req.GateID)
    if err != nil {
        if err == sql.ErrNoRows {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "gate not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load gate failed"})
    }
    if gate.LotID != req.LotID {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "gate does not belong to lot"})
    }

    res, err := h.Svc.Enter(ctx, req.Plate, vt, strings.TrimSpace(req.OwnerEmail), req.LotID, gate.ID, gate.Floor)
    if err != nil {
        switch {
        case errors.Is(err, repository.ErrAlreadyParked):
            return c.JSON(http.StatusConflict, echo.Map{"error": "vehicle already parked"})
        case errors.Is(err, service.ErrNoCapacity):
            return c.JSON(http.StatusConflict, echo.Map{"error": "no slot available"})
        case errors.Is(err, allocation.ErrLotNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "lot not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "entry failed"})
    }

    return c.JSON(http.StatusCreated, echo.Map{
        "ticket_id":  res.TicketID,
        "slot_id":    res.SlotID,
        "floor":      res.Floor,
        "number":     res.Number,
        "plate":      res.Plate,
        "entry_time": res.EntryTime.UTC().Format(time.RFC3339),
    })
}

// Amount returns the fee due right now for a ticket without charging
// anything.
func (h *TicketHandler) Amount(c echo.Context) error {
    ticketID, ok := ticketIDParam(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    amount, err := h.Svc.PreviewAmount(ctx, ticketID)
    if err != nil {
        if errors.Is(err, repository.ErrTicketNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "amount failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "ticket_id":    ticketID,
        "amount_cents": amount,
        "amount":       pricing.FormatCents(amount),
    })
}

// Exit charges the fee and, on success, closes the ticket and frees the
// slot.  A declined payment is a 402 with outcome FAILED: the ticket
// stays open and the call can simply be repeated.
func (h *TicketHandler) Exit(c echo.Context) error {
    ticketID, ok := ticketIDParam(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    res, err := h.Svc.PayAndExit(ctx, ticketID)
    if err != nil {
        switch {
        case errors.Is(err, repository.ErrTicketNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
        case errors.Is(err, service.ErrTicketNotActive):
            return c.JSON(http.StatusConflict, echo.Map{"error": "ticket already closed"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "exit failed"})
    }

    body := echo.Map{
        "ticket_id":    res.TicketID,
        "outcome":      res.Outcome,
        "amount_cents": res.AmountCents,
        "amount":       pricing.FormatCents(res.AmountCents),
    }
    if res.Outcome == "FAILED" {
        return c.JSON(http.StatusPaymentRequired, body)
    }
    return c.JSON(http.StatusOK, body)
}

// Receipt returns the ticket projection: the final fee for a closed
// ticket, the running fee for an open one.
func (h *TicketHandler) Receipt(c echo.Context) error {
    ticketID, ok := ticketIDParam(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    rcpt, err := h.Svc.Receipt(ctx, ticketID)
    if err != nil {
        if errors.Is(err, repository.ErrTicketNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "receipt failed"})
    }

    body := echo.Map{
        "ticket_id":    rcpt.TicketID,
        "plate":        rcpt.Plate,
        "slot_id":      rcpt.SlotID,
        "floor":        rcpt.Floor,
        "number":       rcpt.Number,
        "entry_time":   rcpt.EntryTime.UTC().Format(time.RFC3339),
        "amount_cents": rcpt.AmountCents,
        "amount":       pricing.FormatCents(rcpt.AmountCents),
    }
    if rcpt.ExitTime != nil {
        body["exit_time"] = rcpt.ExitTime.UTC().Format(time.RFC3339)
    }
    return c.JSON(http.StatusOK, body)
}

// ticketIDParam parses the :id route parameter.
func ticketIDParam(c echo.Context) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return 0, false
    }
    return id, true
}
