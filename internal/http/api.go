package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"medsbuddy/internal/auth"
	"medsbuddy/internal/domain"
	"medsbuddy/internal/service"
)

const userIDKey = "user_id"

// TokenIssuer issues and verifies bearer tokens.
type TokenIssuer interface {
	IssueToken(userID int64) (string, error)
	VerifyToken(token string) (int64, error)
}

// Options tunes cross-cutting HTTP behavior.
type Options struct {
	AllowedOrigins []string
	// AuthRateLimit bounds signup/login attempts per client IP. Zero disables it.
	AuthRateLimit rate.Limit
	AuthRateBurst int
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users  service.UserService
	meds   service.MedicationService
	tokens TokenIssuer
	logger logrus.FieldLogger
	opts   Options
}

func NewHandler(users service.UserService, meds service.MedicationService, tokens TokenIssuer, logger logrus.FieldLogger, opts Options) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{
		users:  users,
		meds:   meds,
		tokens: tokens,
		logger: logger,
		opts:   opts,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestLogger(h.logger), recovery(h.logger), corsMiddleware(h.opts.AllowedOrigins))

	var authLimit gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if h.opts.AuthRateLimit > 0 {
		authLimit = newIPRateLimiter(h.opts.AuthRateLimit, h.opts.AuthRateBurst).middleware()
	}

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		api.POST("/auth/signup", authLimit, h.signup)
		api.POST("/auth/login", authLimit, h.login)

		protected := api.Group("", h.requireAuth)
		protected.GET("/auth/me", h.me)
		protected.GET("/medications", h.listMedications)
		protected.POST("/medications", h.createMedication)
		protected.GET("/medications/:id", h.getMedication)
		protected.PATCH("/medications/:id", h.updateMedication)
		protected.DELETE("/medications/:id", h.deleteMedication)
		protected.POST("/medications/:id/mark-taken", h.markTaken)
		protected.GET("/medication-logs", h.listMedicationLogs)
		protected.GET("/adherence", h.adherence)
	}
}

// requireAuth resolves the bearer token into the acting user id.
func (h *Handler) requireAuth(c *gin.Context) {
	userID, err := h.tokens.VerifyToken(auth.BearerToken(c.GetHeader("Authorization")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Set(userIDKey, userID)
	c.Next()
}

func currentUserID(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}

type signupRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6,max=72"`
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Role      string `json:"role" binding:"required,oneof=patient caretaker"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

func (h *Handler) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	user, err := h.users.Signup(c.Request.Context(), service.SignupInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      domain.Role(req.Role),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.respondSession(c, http.StatusCreated, user)
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.respondSession(c, http.StatusOK, user)
}

func (h *Handler) respondSession(c *gin.Context, status int, user *domain.User) {
	token, err := h.tokens.IssueToken(user.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(status, AuthResponse{Token: token, User: userToResponse(user)})
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.users.GetByID(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, userToResponse(user))
}

type createMedicationRequest struct {
	Name      string   `json:"name" binding:"required"`
	Dosage    string   `json:"dosage" binding:"required"`
	Frequency string   `json:"frequency" binding:"required"`
	Times     []string `json:"times"`
	Notes     *string  `json:"notes"`
}

type updateMedicationRequest struct {
	Name      *string   `json:"name"`
	Dosage    *string   `json:"dosage"`
	Frequency *string   `json:"frequency"`
	Times     *[]string `json:"times"`
	Notes     *string   `json:"notes"`
}

func (h *Handler) listMedications(c *gin.Context) {
	meds, err := h.meds.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := make([]MedicationResponse, len(meds))
	for i := range meds {
		resp[i] = medicationToResponse(meds[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) createMedication(c *gin.Context) {
	var req createMedicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	med, err := h.meds.Create(c.Request.Context(), currentUserID(c), service.MedicationInput{
		Name:      req.Name,
		Dosage:    req.Dosage,
		Frequency: req.Frequency,
		Times:     req.Times,
		Notes:     req.Notes,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, medicationToResponse(*med))
}

func (h *Handler) getMedication(c *gin.Context) {
	id, ok := medicationID(c)
	if !ok {
		h.respondError(c, service.ErrMedicationNotFound)
		return
	}

	med, err := h.meds.Get(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, medicationToResponse(*med))
}

func (h *Handler) updateMedication(c *gin.Context) {
	id, ok := medicationID(c)
	if !ok {
		h.respondError(c, service.ErrMedicationNotFound)
		return
	}

	var req updateMedicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	med, err := h.meds.Update(c.Request.Context(), currentUserID(c), id, domain.MedicationPatch{
		Name:      req.Name,
		Dosage:    req.Dosage,
		Frequency: req.Frequency,
		Times:     req.Times,
		Notes:     req.Notes,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, medicationToResponse(*med))
}

func (h *Handler) deleteMedication(c *gin.Context) {
	id, ok := medicationID(c)
	if !ok {
		h.respondError(c, service.ErrMedicationNotFound)
		return
	}

	if err := h.meds.Delete(c.Request.Context(), currentUserID(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) markTaken(c *gin.Context) {
	id, ok := medicationID(c)
	if !ok {
		h.respondError(c, service.ErrMedicationNotFound)
		return
	}

	log, err := h.meds.MarkTaken(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, logToResponse(*log))
}

func (h *Handler) listMedicationLogs(c *gin.Context) {
	startDate := strings.TrimSpace(c.Query("startDate"))
	endDate := strings.TrimSpace(c.Query("endDate"))
	if startDate == "" || endDate == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "startDate and endDate are required"})
		return
	}

	logs, err := h.meds.ListLogs(c.Request.Context(), currentUserID(c), startDate, endDate)
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := make([]MedicationLogResponse, len(logs))
	for i := range logs {
		resp[i] = logToResponse(logs[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) adherence(c *gin.Context) {
	report, err := h.meds.Adherence(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, AdherenceResponse{
		AdherenceRate:      report.Rate,
		TotalExpectedDoses: report.ExpectedDoses,
		TotalTakenDoses:    report.TakenDoses,
		Period:             report.Period(),
	})
}

// medicationID parses the :id path segment. Unparseable ids are treated as
// unknown medications.
func medicationID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
