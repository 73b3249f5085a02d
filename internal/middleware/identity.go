package middleware

// identity.go defines helper functions shared across middleware files.
// Currently it provides currentUserID, which reads the identity that
// JWTAuth stored in the Echo context so rate-limit keys can be scoped per
// operator account.  Unauthenticated callers all share the "anon" bucket.

import (
    "fmt"

    "github.com/labstack/echo/v4"
)

// currentUserID returns the authenticated user's identifier as a string,
// or "anon" when the request carries no valid token.  The "sub" claim is
// numeric in our tokens, so non-string values are formatted rather than
// discarded.
func currentUserID(c echo.Context) string {
    v := c.Get("user_id")
    if v == nil {
        return "anon"
    }
    if s, ok := v.(string); ok {
        if s == "" {
            return "anon"
        }
        return s
    }
    return fmt.Sprint(v)
}
