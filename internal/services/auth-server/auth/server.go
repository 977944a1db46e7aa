package auth

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/NordCoder/studybuddy/internal/obs"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type Server struct {
	echo *echo.Echo
	log  *zap.Logger
	uc   *Usecase
}

type Opts struct {
	Logger       *zap.Logger
	BasePath     string
	AllowOrigins []string
}

type signUpRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type loginResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	Token string `json:"token"`
}

type meResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func NewServer(uc *Usecase, o Opts) *Server {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, log: log, uc: uc}
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	if len(o.AllowOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: o.AllowOrigins,
			AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
		}))
	}
	e.Use(s.requestLog)

	g := e.Group(strings.TrimRight(o.BasePath, "/"))
	g.POST("/signup", s.handle("signup", s.signUp))
	g.POST("/login", s.handle("login", s.login))
	g.POST("/refresh", s.handle("refresh", s.refresh))
	g.POST("/logout", s.handle("logout", s.logout))
	g.GET("/me", s.handle("me", RequireAccess(uc)(s.me)))
	return s
}

func (s *Server) Handler() http.Handler { return s.echo }

func (s *Server) handle(op string, h echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := h(c)
		authRequests.WithLabelValues(op, outcomeOf(err)).Inc()
		return err
	}
}

// bindJSON reads the body as JSON even when the client sent no Content-Type,
// which echo's binder would refuse with 415.
func bindJSON(c echo.Context, v any) error {
	if c.Request().Header.Get(echo.HeaderContentType) == "" {
		if err := json.NewDecoder(c.Request().Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
			return errBadBody
		}
		return nil
	}
	if err := c.Bind(v); err != nil {
		return errBadBody
	}
	return nil
}

func (s *Server) signUp(c echo.Context) error {
	var req signUpRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	log := obs.WithTrace(c.Request().Context(), s.log)
	log.Info("auth.signup", zap.String("email", req.Email))

	if _, err := s.uc.SignUp(c.Request().Context(), SignUpInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	}); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, messageResponse{Message: "User Created"})
}

func (s *Server) login(c echo.Context) error {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	log := obs.WithTrace(c.Request().Context(), s.log)
	log.Info("auth.login", zap.String("email", req.Email))

	pair, err := s.uc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loginResponse{Token: pair.Access, RefreshToken: pair.Refresh})
}

func (s *Server) refresh(c echo.Context) error {
	var req refreshRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	access, err := s.uc.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, refreshResponse{Token: access})
}

func (s *Server) logout(c echo.Context) error {
	var req refreshRequest
	// an unreadable body only means there is nothing to revoke
	_ = bindJSON(c, &req)

	if err := s.uc.Logout(c.Request().Context(), bearer(c.Request()), req.RefreshToken); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) me(c echo.Context) error {
	claims := ClaimsFrom(c)
	u, err := s.uc.Me(c.Request().Context(), claims)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, meResponse{ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName})
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, msg := mapErr(err)
	log := obs.WithTrace(c.Request().Context(), s.log)
	if code >= http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	} else {
		log.Debug("request rejected", zap.String("path", c.Path()), zap.Int("status", code), zap.String("reason", err.Error()))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, errorResponse{Error: msg})
	}
	if err != nil && !errors.Is(err, http.ErrHandlerTimeout) {
		log.Warn("write error response", zap.Error(err))
	}
}

func (s *Server) requestLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			// let the error handler set the final status before it is logged
			c.Error(err)
		}
		obs.WithTrace(c.Request().Context(), s.log).Info("http request",
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Int("status", c.Response().Status),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
		)
		return nil
	}
}
