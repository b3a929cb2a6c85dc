package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/ArowuTest/insurance-policy-backend/internal/access"
	"github.com/ArowuTest/insurance-policy-backend/internal/apperr"
	"github.com/ArowuTest/insurance-policy-backend/internal/logger"
	"github.com/ArowuTest/insurance-policy-backend/internal/models"
	"github.com/ArowuTest/insurance-policy-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

// TokenIssuer emits a bearer credential for an account id and role.
type TokenIssuer interface {
	Issue(subject, role string) (string, error)
}

// AccountService handles registration, login and admin account management
type AccountService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.Account, error)
	Login(ctx context.Context, role models.Role, req *models.LoginRequest) (*models.LoginResponse, error)
	// Resolve loads the account behind an authenticated principal.
	Resolve(ctx context.Context, p *models.Principal) (*models.Account, error)
	CreateAgent(ctx context.Context, actor *models.Principal, req *models.CreateAgentRequest) (*Result[*models.Account], error)
	ListAgents(ctx context.Context, actor *models.Principal) ([]*models.Account, error)
	ListCustomers(ctx context.Context, actor *models.Principal) ([]*models.Account, error)
	ChangeRole(ctx context.Context, actor *models.Principal, req *models.ChangeRoleRequest) (*Result[*models.Account], error)
	CustomerOverview(ctx context.Context, actor *models.Principal, customerID primitive.ObjectID) (*models.CustomerOverview, error)
	// BootstrapAdmin creates the admin account if no account uses the email yet.
	BootstrapAdmin(ctx context.Context, name, email, password string) error
}

type accountService struct {
	repos    Repositories
	tokens   TokenIssuer
	audit    AuditService
	populate *Populator
	log      *logger.Logger
}

func NewAccountService(repos Repositories, tokens TokenIssuer, audit AuditService, log *logger.Logger) AccountService {
	return &accountService{repos: repos, tokens: tokens, audit: audit, populate: NewPopulator(repos), log: log}
}

func (s *accountService) store(role models.Role) (repositories.AccountRepository, error) {
	repo, err := s.repos.Accounts.For(role)
	if err != nil {
		return nil, apperr.Internal(err, "resolve account store")
	}
	return repo, nil
}

// newAccount validates the input and hashes the password.
func newAccount(name, email, password string, role models.Role) (*models.Account, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < 3 || n > 30 {
		return nil, apperr.Validation("name must be between 3 and 30 characters")
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return nil, apperr.Validation("email is not valid")
	}
	if len(password) < 6 {
		return nil, apperr.Validation("password must be at least 6 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal(err, "hash password")
	}
	return &models.Account{
		Name:     name,
		Email:    strings.ToLower(addr.Address),
		Password: string(hash),
		Role:     role,
	}, nil
}

// findAnyRole looks an email up in every role store.
func (s *accountService) findAnyRole(ctx context.Context, email string) (*models.Account, error) {
	for _, role := range models.Roles {
		repo, err := s.store(role)
		if err != nil {
			return nil, err
		}
		account, err := repo.FindByEmail(ctx, email)
		if err == nil {
			account.Role = role
			return account, nil
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.Internal(err, "find account")
		}
	}
	return nil, apperr.NotFound("account %s not found", email)
}

func (s *accountService) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.findAnyRole(ctx, email)
	if err == nil {
		return apperr.Conflict("email %s is already registered", email)
	}
	if apperr.Is(err, apperr.KindNotFound) {
		return nil
	}
	return err
}

func (s *accountService) create(ctx context.Context, account *models.Account) error {
	if err := s.ensureEmailFree(ctx, account.Email); err != nil {
		return err
	}
	repo, err := s.store(account.Role)
	if err != nil {
		return err
	}
	if err := repo.Create(ctx, account); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return apperr.Conflict("email %s is already registered", account.Email)
		}
		return apperr.Internal(err, "create account")
	}
	return nil
}

func (s *accountService) Register(ctx context.Context, req *models.RegisterRequest) (*models.Account, error) {
	account, err := newAccount(req.Name, req.Email, req.Password, models.RoleCustomer)
	if err != nil {
		return nil, err
	}
	if err := s.create(ctx, account); err != nil {
		return nil, err
	}
	s.log.Info("customer registered", "account", account.ID.Hex())
	return account, nil
}

func (s *accountService) Login(ctx context.Context, role models.Role, req *models.LoginRequest) (*models.LoginResponse, error) {
	if !role.Valid() {
		return nil, apperr.Validation("unknown role %q", role)
	}
	repo, err := s.store(role)
	if err != nil {
		return nil, err
	}
	account, err := repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.Unauthenticated("invalid credentials")
		}
		return nil, apperr.Internal(err, "find account")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(req.Password)); err != nil {
		return nil, apperr.Unauthenticated("invalid credentials")
	}
	account.Role = role

	token, err := s.tokens.Issue(account.ID.Hex(), string(role))
	if err != nil {
		return nil, apperr.Internal(err, "issue token")
	}
	s.log.Debug("login succeeded", "account", account.ID.Hex(), "role", role)
	return &models.LoginResponse{Token: token, Account: account}, nil
}

func (s *accountService) Resolve(ctx context.Context, p *models.Principal) (*models.Account, error) {
	if p == nil || p.ID.IsZero() {
		return nil, apperr.Unauthenticated("authentication required")
	}
	repo, err := s.store(p.Role)
	if err != nil {
		return nil, err
	}
	account, err := repo.FindByID(ctx, p.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.Unauthenticated("account no longer exists")
		}
		return nil, apperr.Internal(err, "load account")
	}
	return account, nil
}

// nextAgentCode formats the next value of the agent code counter.
func (s *accountService) nextAgentCode(ctx context.Context) (string, error) {
	seq, err := s.repos.Counters.Next(ctx, models.AgentCodeCounter)
	if err != nil {
		return "", apperr.Internal(err, "allocate agent code")
	}
	return fmt.Sprintf("AGT%04d", seq), nil
}

func (s *accountService) CreateAgent(ctx context.Context, actor *models.Principal, req *models.CreateAgentRequest) (*Result[*models.Account], error) {
	if err := access.RequireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	account, err := newAccount(req.Name, req.Email, req.Password, models.RoleAgent)
	if err != nil {
		return nil, err
	}
	if account.AgentCode, err = s.nextAgentCode(ctx); err != nil {
		return nil, err
	}
	if err := s.create(ctx, account); err != nil {
		return nil, err
	}

	s.log.Info("agent created", "agent", account.ID.Hex(), "agentCode", account.AgentCode)
	warning := s.audit.Record(ctx, auditEntry(models.AuditAgentCreated, actor, account.ID, "agent %s created", account.AgentCode))
	return result(account, warning), nil
}

func (s *accountService) list(ctx context.Context, actor *models.Principal, role models.Role) ([]*models.Account, error) {
	if err := access.RequireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	repo, err := s.store(role)
	if err != nil {
		return nil, err
	}
	accounts, err := repo.FindAll(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "list accounts")
	}
	return accounts, nil
}

func (s *accountService) ListAgents(ctx context.Context, actor *models.Principal) ([]*models.Account, error) {
	return s.list(ctx, actor, models.RoleAgent)
}

func (s *accountService) ListCustomers(ctx context.Context, actor *models.Principal) ([]*models.Account, error) {
	return s.list(ctx, actor, models.RoleCustomer)
}

// ChangeRole moves an account into another role's store. Agents that still
// have products or Pending/Approved subscriptions assigned cannot leave the
// agent role; their settled subscriptions lose the agent reference.
func (s *accountService) ChangeRole(ctx context.Context, actor *models.Principal, req *models.ChangeRoleRequest) (*Result[*models.Account], error) {
	if err := access.RequireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	target, err := models.ParseRole(req.Role)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	account, err := s.findAnyRole(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	from := account.Role
	if from == target {
		return nil, apperr.Conflict("account already has role %s", target)
	}
	if account.ID == actor.ID {
		return nil, apperr.Forbidden("admins cannot change their own role")
	}
	if from == models.RoleAgent {
		assigned, err := s.repos.Products.FindByAgent(ctx, account.ID)
		if err != nil {
			return nil, apperr.Internal(err, "list assigned products")
		}
		if len(assigned) > 0 {
			return nil, apperr.Conflict("agent still has %d assigned products", len(assigned))
		}
		active, err := s.repos.Policies.CountByAgent(ctx, account.ID, models.ActivePolicyStatuses)
		if err != nil {
			return nil, apperr.Internal(err, "count assigned subscriptions")
		}
		if active > 0 {
			return nil, apperr.Conflict("agent still handles %d Pending or Approved subscriptions", active)
		}
	}

	source, err := s.store(from)
	if err != nil {
		return nil, err
	}
	dest, err := s.store(target)
	if err != nil {
		return nil, err
	}
	var cleared int64
	err = s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if from == models.RoleAgent {
			var err error
			if cleared, err = s.repos.Policies.ClearAgent(ctx, account.ID); err != nil {
				return err
			}
		}
		if err := source.Delete(ctx, account.ID); err != nil {
			return err
		}
		account.Role = target
		switch {
		case target == models.RoleAgent && account.AgentCode == "":
			code, err := s.nextAgentCode(ctx)
			if err != nil {
				return err
			}
			account.AgentCode = code
		case target != models.RoleAgent:
			account.AgentCode = ""
		}
		return dest.Create(ctx, account)
	})
	if err != nil {
		return nil, storeErr(err, "change role", "account")
	}

	s.log.Info("account role changed", "account", account.ID.Hex(), "from", from, "to", target, "subscriptionsCleared", cleared)
	warning := s.audit.Record(ctx, auditEntry(models.AuditRoleChanged, actor, account.ID, "role changed from %s to %s", from, target))
	return result(account, warning), nil
}

func (s *accountService) CustomerOverview(ctx context.Context, actor *models.Principal, customerID primitive.ObjectID) (*models.CustomerOverview, error) {
	if err := access.RequireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	customers, err := s.store(models.RoleCustomer)
	if err != nil {
		return nil, err
	}
	customer, err := customers.FindByID(ctx, customerID)
	if err != nil {
		return nil, storeErr(err, "load customer", "customer")
	}

	overview := &models.CustomerOverview{Customer: customer.Summary()}
	var policies []*models.UserPolicy
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		policies, err = s.repos.Policies.FindByUser(gctx, customerID)
		return err
	})
	g.Go(func() (err error) {
		overview.Payments, err = s.repos.Payments.FindByUser(gctx, customerID)
		return err
	})
	g.Go(func() (err error) {
		overview.Claims, err = s.repos.Claims.FindByUser(gctx, customerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal(err, "load customer overview")
	}
	if overview.Policies, err = s.populate.Policies(ctx, policies); err != nil {
		return nil, err
	}
	return overview, nil
}

func (s *accountService) BootstrapAdmin(ctx context.Context, name, email, password string) error {
	if strings.TrimSpace(email) == "" {
		return nil
	}
	account, err := newAccount(name, email, password, models.RoleAdmin)
	if err != nil {
		return err
	}
	err = s.create(ctx, account)
	if apperr.Is(err, apperr.KindConflict) {
		s.log.Debug("bootstrap admin already present", "email", account.Email)
		return nil
	}
	if err != nil {
		return err
	}
	s.log.Info("bootstrap admin created", "account", account.ID.Hex(), "email", account.Email)
	return nil
}
