package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"atelier/api/internal/auth"
	"atelier/api/internal/authpw"
	"atelier/api/internal/config"
	"atelier/api/internal/email"
	"atelier/api/internal/export"
	"atelier/api/internal/journey"
	"atelier/api/internal/rbac"
	"atelier/api/internal/search"
	"atelier/api/internal/store"
	"atelier/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Role         string
	ExpiresAt    time.Time
}

type VendorInput struct {
	Name        string `json:"name"`
	ContactName string `json:"contactName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	Notes       string `json:"notes"`
}

type ProductInput struct {
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	VendorID  string  `json:"vendorId"`
	UnitPrice float64 `json:"unitPrice"`
	ImageURL  string  `json:"imageUrl"`
}

type OrderInput struct {
	ClientID  string `json:"clientId"`
	FloorPlan string `json:"floorPlan"`
}

type OrderItemInput struct {
	ItemID      string            `json:"itemId"`
	ProductID   string            `json:"productId"`
	ProductName string            `json:"productName"`
	Category    string            `json:"category"`
	VendorID    string            `json:"vendorId"`
	Quantity    int               `json:"quantity"`
	UnitPrice   float64           `json:"unitPrice"`
	Options     store.ItemOptions `json:"options"`
}

type PaymentInput struct {
	InstallmentNo int     `json:"installmentNo"`
	Label         string  `json:"label"`
	Amount        float64 `json:"amount"`
}

// dataStore is implemented by store.PostgresStore.
type dataStore interface {
	GetUserByEmail(context.Context, string) (store.User, error)
	GetUserByID(context.Context, string) (store.User, error)
	CreateUser(context.Context, store.User) error
	UpdateUserVerificationToken(context.Context, string, string, time.Time) error
	VerifyUserEmail(context.Context, string) error
	UpdateUserPassword(context.Context, string, string) error
	CreatePasswordReset(context.Context, string, string, time.Time) error
	GetPasswordReset(context.Context, string) (string, error)
	MarkPasswordResetUsed(context.Context, string) error
	ListClients(context.Context, string) ([]store.User, error)
	SetClientApproval(context.Context, string, string) (store.User, error)
	ListVendors(context.Context) ([]store.Vendor, error)
	GetVendor(context.Context, string) (store.Vendor, error)
	InsertVendor(context.Context, store.Vendor) error
	UpdateVendor(context.Context, store.Vendor) error
	DeleteVendor(context.Context, string) error
	ListVendorItems(context.Context, string) ([]store.VendorItemRef, error)
	ListProducts(context.Context) ([]store.Product, error)
	InsertProduct(context.Context, store.Product) error
	ListOrders(context.Context) ([]store.Order, error)
	GetOrder(context.Context, string) (store.Order, error)
	InsertOrder(context.Context, store.Order) error
	UpdateOrderStatus(context.Context, string, string) error
	ListOrderItems(context.Context, string) ([]store.OrderItem, error)
	ReplaceOrderItems(context.Context, string, []store.OrderItem) error
	UpdateOrderItemPONumber(context.Context, string, string) (bool, error)
	MaxVersionNumber(context.Context, string, string) (int, error)
	GetLatestVersion(context.Context, string, string) (store.Version, error)
	GetVersion(context.Context, string, string, int) (store.Version, error)
	InsertVersion(context.Context, store.Version) error
	UpdateVersion(context.Context, store.Version) error
	UpdateVersionStatus(context.Context, string, string, int, string) error
	ListVersions(context.Context, string, string) ([]store.Version, error)
	ListLatestPerVendor(context.Context, string) ([]store.Version, error)
	InsertJourneySteps(context.Context, []store.JourneyStep) error
	ListJourneySteps(context.Context, string) ([]store.JourneyStep, error)
	CompleteJourneyStep(context.Context, string, int, string) (store.JourneyStep, bool, error)
	ReplacePayments(context.Context, string, []store.Payment) error
	ListPayments(context.Context, string) ([]store.Payment, error)
	MarkPaymentPaid(context.Context, string, int) error
	PaymentProgress(context.Context, string) (int, int, error)
	Ping(ctx context.Context) error
}

// SessionStore holds refresh tokens. Backed by Redis in production, or the
// Postgres refresh_sessions table when Redis is not configured.
type SessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions SessionStore
	email    *email.Service
	search   *search.Service
	exporter *export.Service
	uploader Uploader
}

// Uploader stores uploaded blobs. Backed by object storage; nil disables
// uploads.
type Uploader interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	Remove(ctx context.Context, key string) error
}

func New(cfg config.Config, dataStore dataStore, sessions SessionStore, emailSvc *email.Service, searchSvc *search.Service, exporter *export.Service, uploader Uploader) *Service {
	return &Service{
		cfg:      cfg,
		store:    dataStore,
		sessions: sessions,
		email:    emailSvc,
		search:   searchSvc,
		exporter: exporter,
		uploader: uploader,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) Can(role, action string) bool {
	return rbac.Can(role, action)
}

func (s *Service) SMTPConfigured() bool {
	return s.email != nil && s.email.IsConfigured()
}

// --- auth ---

type SignUpInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

func (s *Service) SignUp(ctx context.Context, input SignUpInput) (map[string]any, error) {
	emailAddr := strings.ToLower(strings.TrimSpace(input.Email))
	if emailAddr == "" || !strings.Contains(emailAddr, "@") {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "A valid email is required", nil)
	}
	if err := authpw.Validate(input.Password); err != nil {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
	}
	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "displayName is required", nil)
	}

	if _, err := s.store.GetUserByEmail(ctx, emailAddr); err == nil {
		return nil, domainError(http.StatusConflict, "EMAIL_EXISTS", "Email already registered", nil)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = rbac.RoleClient
	}
	if !rbac.KnownRole(role) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown role", nil)
	}

	// Staff roles are created pre-approved; clients wait for review.
	approval := "approved"
	if role == rbac.RoleClient {
		approval = "pending"
	}

	hash, err := authpw.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := store.User{
		ID:                util.NewID("usr"),
		DisplayName:       displayName,
		Email:             emailAddr,
		PasswordHash:      hash,
		Role:              role,
		ApprovalStatus:    approval,
		VerificationToken: util.NewID(""),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	if err := s.store.UpdateUserVerificationToken(ctx, user.ID, user.VerificationToken, time.Now().Add(24*time.Hour)); err != nil {
		return nil, err
	}

	if s.SMTPConfigured() {
		verifyURL := s.cfg.PublicBaseURL + "/verify-email?token=" + user.VerificationToken
		go func() {
			if err := s.email.SendVerificationEmail(user.Email, user.DisplayName, verifyURL); err != nil {
				log.Printf("email: verification to %s: %v", user.Email, err)
			}
		}()
	}

	response := map[string]any{
		"userId":  user.ID,
		"message": "Please check your email to verify your account",
	}
	// Dev bypass: include verification token in response when email not configured
	if !s.SMTPConfigured() {
		response["devVerificationToken"] = user.VerificationToken
	}
	return response, nil
}

func (s *Service) SignIn(ctx context.Context, emailAddr, password string) (Session, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(emailAddr)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
		}
		return Session{}, err
	}
	if err := authpw.Compare(user.PasswordHash, password); err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	}
	if !user.IsEmailVerified {
		return Session{}, domainError(http.StatusForbidden, "EMAIL_NOT_VERIFIED", "Please verify your email before signing in", nil)
	}
	if user.Role == rbac.RoleClient {
		switch user.ApprovalStatus {
		case "pending":
			return Session{}, domainError(http.StatusForbidden, "ACCOUNT_PENDING", "Your account is awaiting approval", nil)
		case "rejected":
			return Session{}, domainError(http.StatusForbidden, "ACCOUNT_REJECTED", "Your account request was declined", nil)
		}
	}
	if user.DeactivatedAt != nil {
		return Session{}, domainError(http.StatusForbidden, "ACCOUNT_DEACTIVATED", "This account has been deactivated", nil)
	}

	return s.issueSession(ctx, user)
}

func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "token is required", nil)
	}
	if err := s.store.VerifyUserEmail(ctx, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domainError(http.StatusBadRequest, "VERIFICATION_FAILED", "Invalid or expired verification token", nil)
		}
		return err
	}
	return nil
}

// RequestPasswordReset returns the reset token so the caller can expose it
// in dev mode. Unknown emails return empty without error.
func (s *Service) RequestPasswordReset(ctx context.Context, emailAddr string) (string, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(emailAddr)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}

	token := util.NewID("")
	if err := s.store.CreatePasswordReset(ctx, user.ID, token, time.Now().Add(time.Hour)); err != nil {
		return "", err
	}

	if s.SMTPConfigured() {
		resetURL := s.cfg.PublicBaseURL + "/reset-password?token=" + token
		go func() {
			if err := s.email.SendPasswordResetEmail(user.Email, user.DisplayName, resetURL); err != nil {
				log.Printf("email: password reset to %s: %v", user.Email, err)
			}
		}()
	}
	return token, nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := authpw.Validate(newPassword); err != nil {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
	}
	userID, err := s.store.GetPasswordReset(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domainError(http.StatusBadRequest, "RESET_FAILED", "Invalid or expired reset token", nil)
		}
		return err
	}
	hash, err := authpw.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.store.UpdateUserPassword(ctx, userID, hash); err != nil {
		return err
	}
	return s.store.MarkPasswordResetUsed(ctx, token)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)

	token, err := auth.IssueAccessToken([]byte(s.cfg.JWTSecret), user.ID, user.DisplayName, user.Role, s.cfg.AccessTTL)
	if err != nil {
		return Session{}, err
	}

	refresh := auth.NewRefreshToken()
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		Role:         user.Role,
		ExpiresAt:    expiresAt,
	}, nil
}

// Refresh rotates a refresh token and issues a fresh session. The user is
// reloaded so role and approval changes take effect at rotation time.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	cached, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}

	user, err := s.store.GetUserByID(ctx, cached.ID)
	if err != nil {
		return Session{}, err
	}
	if user.DeactivatedAt != nil || (user.Role == rbac.RoleClient && user.ApprovalStatus != "approved") {
		return Session{}, auth.ErrInvalidToken
	}
	return s.issueSession(ctx, user)
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseAccessToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		UserID:    claims.Subject,
		UserName:  claims.Name,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken != "" {
		return s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

// --- clients ---

func (s *Service) ListClients(ctx context.Context, approvalStatus string) ([]map[string]any, error) {
	if approvalStatus != "" && approvalStatus != "pending" && approvalStatus != "approved" && approvalStatus != "rejected" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown approval status", nil)
	}
	clients, err := s.store.ListClients(ctx, approvalStatus)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(clients))
	for _, client := range clients {
		items = append(items, clientPayload(client))
	}
	return items, nil
}

func (s *Service) SetClientApproval(ctx context.Context, userID, decision string) (map[string]any, error) {
	if decision != "approved" && decision != "rejected" {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "decision must be approved or rejected", nil)
	}
	user, err := s.store.SetClientApproval(ctx, userID, decision)
	if err != nil {
		return nil, err
	}

	if decision == "approved" && s.SMTPConfigured() {
		loginURL := s.cfg.PublicBaseURL + "/signin"
		go func() {
			if err := s.email.SendClientApprovedEmail(user.Email, user.DisplayName, loginURL); err != nil {
				log.Printf("email: client approved to %s: %v", user.Email, err)
			}
		}()
	}
	return clientPayload(user), nil
}

func clientPayload(user store.User) map[string]any {
	return map[string]any{
		"id":             user.ID,
		"displayName":    user.DisplayName,
		"email":          user.Email,
		"approvalStatus": user.ApprovalStatus,
		"createdAt":      user.CreatedAt,
	}
}

// --- vendors ---

func (s *Service) ListVendors(ctx context.Context) ([]store.Vendor, error) {
	return s.store.ListVendors(ctx)
}

func (s *Service) GetVendor(ctx context.Context, vendorID string) (store.Vendor, error) {
	return s.store.GetVendor(ctx, vendorID)
}

func (s *Service) CreateVendor(ctx context.Context, input VendorInput) (store.Vendor, error) {
	if strings.TrimSpace(input.Name) == "" {
		return store.Vendor{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	vendor := store.Vendor{
		ID:          util.NewID("ven"),
		Name:        strings.TrimSpace(input.Name),
		ContactName: input.ContactName,
		Email:       input.Email,
		Phone:       input.Phone,
		Address:     input.Address,
		Notes:       input.Notes,
	}
	if err := s.store.InsertVendor(ctx, vendor); err != nil {
		return store.Vendor{}, err
	}
	s.indexVendor(vendor)
	return s.store.GetVendor(ctx, vendor.ID)
}

func (s *Service) UpdateVendor(ctx context.Context, vendorID string, input VendorInput) (store.Vendor, error) {
	if strings.TrimSpace(input.Name) == "" {
		return store.Vendor{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	vendor := store.Vendor{
		ID:          vendorID,
		Name:        strings.TrimSpace(input.Name),
		ContactName: input.ContactName,
		Email:       input.Email,
		Phone:       input.Phone,
		Address:     input.Address,
		Notes:       input.Notes,
	}
	if err := s.store.UpdateVendor(ctx, vendor); err != nil {
		return store.Vendor{}, err
	}
	s.indexVendor(vendor)
	return s.store.GetVendor(ctx, vendorID)
}

func (s *Service) DeleteVendor(ctx context.Context, vendorID string) error {
	items, err := s.store.ListVendorItems(ctx, vendorID)
	if err != nil {
		return err
	}
	if len(items) > 0 {
		return domainError(http.StatusConflict, "VENDOR_IN_USE", "Vendor still has line items on orders", map[string]any{"itemCount": len(items)})
	}
	if err := s.store.DeleteVendor(ctx, vendorID); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeleteVendor(vendorID)
	}
	return nil
}

func (s *Service) ListVendorItems(ctx context.Context, vendorID string) ([]store.VendorItemRef, error) {
	if _, err := s.store.GetVendor(ctx, vendorID); err != nil {
		return nil, err
	}
	return s.store.ListVendorItems(ctx, vendorID)
}

func (s *Service) indexVendor(vendor store.Vendor) {
	if s.search == nil {
		return
	}
	s.search.IndexVendor(search.VendorRecord{
		ID:          vendor.ID,
		Name:        vendor.Name,
		ContactName: vendor.ContactName,
		Email:       vendor.Email,
		Notes:       vendor.Notes,
	})
}

// --- products ---

func (s *Service) ListProducts(ctx context.Context) ([]store.Product, error) {
	return s.store.ListProducts(ctx)
}

func (s *Service) CreateProduct(ctx context.Context, input ProductInput) (store.Product, error) {
	if strings.TrimSpace(input.Name) == "" {
		return store.Product{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	if input.UnitPrice < 0 {
		return store.Product{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unitPrice must not be negative", nil)
	}
	if input.VendorID != "" {
		if _, err := s.store.GetVendor(ctx, input.VendorID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return store.Product{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown vendor", nil)
			}
			return store.Product{}, err
		}
	}
	product := store.Product{
		ID:        util.NewID("prod"),
		Name:      strings.TrimSpace(input.Name),
		Category:  input.Category,
		VendorID:  input.VendorID,
		UnitPrice: input.UnitPrice,
		ImageURL:  input.ImageURL,
	}
	if err := s.store.InsertProduct(ctx, product); err != nil {
		return store.Product{}, err
	}
	if s.search != nil {
		s.search.IndexProduct(search.ProductRecord{
			ID:       product.ID,
			Name:     product.Name,
			Category: product.Category,
			VendorID: product.VendorID,
		})
	}
	return product, nil
}

// --- orders ---

func (s *Service) ListOrders(ctx context.Context) ([]store.Order, error) {
	return s.store.ListOrders(ctx)
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (store.Order, error) {
	return s.store.GetOrder(ctx, orderID)
}

func (s *Service) CreateOrder(ctx context.Context, input OrderInput) (store.Order, error) {
	client, err := s.store.GetUserByID(ctx, input.ClientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Order{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown client", nil)
		}
		return store.Order{}, err
	}
	if client.Role != rbac.RoleClient || client.ApprovalStatus != "approved" {
		return store.Order{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "orders belong to approved clients", nil)
	}

	order := store.Order{
		ID:        util.NewID("ord"),
		ClientID:  client.ID,
		FloorPlan: input.FloorPlan,
		Status:    "ongoing",
	}
	if err := s.store.InsertOrder(ctx, order); err != nil {
		return store.Order{}, err
	}
	if err := s.store.InsertJourneySteps(ctx, journey.Seed(order.ID)); err != nil {
		return store.Order{}, err
	}
	if s.search != nil {
		s.search.IndexOrder(search.OrderRecord{
			ID:         order.ID,
			ClientName: client.DisplayName,
			FloorPlan:  order.FloorPlan,
			Status:     order.Status,
		})
	}
	return s.store.GetOrder(ctx, order.ID)
}

func (s *Service) ListOrderItems(ctx context.Context, orderID string) ([]store.OrderItem, error) {
	if _, err := s.store.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.store.ListOrderItems(ctx, orderID)
}

// ReplaceOrderItems swaps the live line-item set. Items keep their ids
// when the client sends them back, so snapshots taken earlier still match.
func (s *Service) ReplaceOrderItems(ctx context.Context, orderID string, inputs []OrderItemInput) ([]store.OrderItem, error) {
	if _, err := s.store.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}

	items := make([]store.OrderItem, 0, len(inputs))
	for i, input := range inputs {
		if strings.TrimSpace(input.ProductName) == "" {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR",
				fmt.Sprintf("item %d: productName is required", i), nil)
		}
		if input.Quantity <= 0 {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR",
				fmt.Sprintf("item %d: quantity must be positive", i), nil)
		}
		if input.UnitPrice < 0 {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR",
				fmt.Sprintf("item %d: unitPrice must not be negative", i), nil)
		}
		itemID := input.ItemID
		if itemID == "" {
			itemID = util.NewID("item")
		}
		items = append(items, store.OrderItem{
			ID:          itemID,
			OrderID:     orderID,
			ProductID:   input.ProductID,
			ProductName: strings.TrimSpace(input.ProductName),
			Category:    input.Category,
			VendorID:    input.VendorID,
			Quantity:    input.Quantity,
			UnitPrice:   input.UnitPrice,
			FinalPrice:  float64(input.Quantity) * input.UnitPrice,
			Options:     input.Options,
		})
	}
	if err := s.store.ReplaceOrderItems(ctx, orderID, items); err != nil {
		return nil, err
	}
	return s.store.ListOrderItems(ctx, orderID)
}

// --- journey ---

func (s *Service) ListJourney(ctx context.Context, orderID string) ([]store.JourneyStep, error) {
	if _, err := s.store.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.store.ListJourneySteps(ctx, orderID)
}

func (s *Service) CompleteJourneyStep(ctx context.Context, orderID string, stepNo int, completedBy string) (store.JourneyStep, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return store.JourneyStep{}, err
	}

	step, changed, err := s.store.CompleteJourneyStep(ctx, orderID, stepNo, completedBy)
	if err != nil {
		return store.JourneyStep{}, err
	}

	// Milestone emails only fire on the first completion. The plan, not
	// the stored row, decides what counts as a milestone.
	if changed && journey.IsMilestone(step.StepNo) && s.SMTPConfigured() {
		client, err := s.store.GetUserByID(ctx, order.ClientID)
		if err == nil {
			title := step.Title
			go func() {
				if err := s.email.SendMilestoneEmail(client.Email, client.DisplayName, title); err != nil {
					log.Printf("email: milestone to %s: %v", client.Email, err)
				}
			}()
		}
	}
	return step, nil
}

// --- payments ---

// ReplacePayments rewrites the installment plan. Paid installments are
// kept as they are.
func (s *Service) ReplacePayments(ctx context.Context, orderID string, inputs []PaymentInput) ([]store.Payment, error) {
	if _, err := s.store.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	payments := make([]store.Payment, 0, len(inputs))
	seen := map[int]bool{}
	for i, input := range inputs {
		if input.InstallmentNo <= 0 {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR",
				fmt.Sprintf("payment %d: installmentNo must be positive", i), nil)
		}
		if seen[input.InstallmentNo] {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR",
				fmt.Sprintf("payment %d: duplicate installmentNo", i), nil)
		}
		seen[input.InstallmentNo] = true
		if input.Amount < 0 {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR",
				fmt.Sprintf("payment %d: amount must not be negative", i), nil)
		}
		payments = append(payments, store.Payment{
			OrderID:       orderID,
			InstallmentNo: input.InstallmentNo,
			Label:         input.Label,
			Amount:        input.Amount,
		})
	}
	if err := s.store.ReplacePayments(ctx, orderID, payments); err != nil {
		return nil, err
	}
	return s.store.ListPayments(ctx, orderID)
}

func (s *Service) ListPayments(ctx context.Context, orderID string) ([]store.Payment, error) {
	if _, err := s.store.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.store.ListPayments(ctx, orderID)
}

// MarkPaymentPaid records an installment payment and rolls the order
// status forward. Order status is driven by payments alone: the first paid
// installment confirms the order, the last one completes it.
func (s *Service) MarkPaymentPaid(ctx context.Context, orderID string, installmentNo int) (map[string]any, error) {
	if _, err := s.store.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	if err := s.store.MarkPaymentPaid(ctx, orderID, installmentNo); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainError(http.StatusConflict, "ALREADY_PAID", "Installment not found or already paid", nil)
		}
		return nil, err
	}

	paid, total, err := s.store.PaymentProgress(ctx, orderID)
	if err != nil {
		return nil, err
	}
	status := "ongoing"
	switch {
	case total > 0 && paid == total:
		status = "completed"
	case paid > 0:
		status = "confirmed"
	}
	if err := s.store.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return nil, err
	}

	return map[string]any{
		"orderId":     orderID,
		"orderStatus": status,
		"paidCount":   paid,
		"totalCount":  total,
	}, nil
}

// --- uploads ---

func (s *Service) Upload(ctx context.Context, filename, contentType string, data []byte) (map[string]any, error) {
	if s.uploader == nil {
		return nil, domainError(http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Object storage not configured", nil)
	}
	if len(data) == 0 {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "file is empty", nil)
	}
	key := util.NewID("up") + "/" + filename
	if _, err := s.uploader.Put(ctx, key, data, contentType); err != nil {
		return nil, err
	}
	url, err := s.uploader.PresignedURL(ctx, key, 24*time.Hour)
	if err != nil {
		// Don't leave an orphaned object behind.
		if rmErr := s.uploader.Remove(ctx, key); rmErr != nil {
			log.Printf("storage: remove %s: %v", key, rmErr)
		}
		return nil, err
	}
	return map[string]any{"key": key, "url": url}, nil
}

// --- search ---

func (s *Service) Search(q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(q)
}
