package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rockwatchstack/rockwatch/internal/auth"
	"github.com/rockwatchstack/rockwatch/internal/metrics"
	"github.com/rockwatchstack/rockwatch/internal/models"
	"github.com/rockwatchstack/rockwatch/internal/store"
)

const currentUserKey = "rockwatch.current_user"

// requireAuth verifies the bearer token and loads the account into the
// request context. Every failure is a uniform 401.
func requireAuth(issuer *auth.Issuer, st *store.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				metrics.ObserveAuthFailure()
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			subject, err := issuer.Verify(token)
			if err != nil {
				metrics.ObserveAuthFailure()
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			user, err := st.User(subject)
			if err != nil || !user.Active {
				metrics.ObserveAuthFailure()
				return echo.NewHTTPError(http.StatusUnauthorized, "unknown or inactive account")
			}

			c.Set(currentUserKey, user)
			return next(c)
		}
	}
}

func currentUser(c echo.Context) (models.User, bool) {
	user, ok := c.Get(currentUserKey).(models.User)
	return user, ok
}

// observeRequests feeds the prometheus HTTP collectors.
func observeRequests() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}
			route := c.Path()
			if route == "" {
				route = c.Request().URL.Path
			}
			metrics.ObserveRequest(c.Request().Method, route, strconv.Itoa(status), time.Since(start))
			return err
		}
	}
}
