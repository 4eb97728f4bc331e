package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-editorial/internal/bounded"
	"github.com/goliatone/go-editorial/internal/domain"
	"github.com/goliatone/go-editorial/internal/logging"
	"github.com/goliatone/go-editorial/pkg/interfaces"
)

// DefaultTimeout bounds every store call.
const DefaultTimeout = 10 * time.Second

// Payload is the column/value map sent to the store.
type Payload map[string]any

// Result is a successful save.
type Result struct {
	Identity string
	Record   map[string]any
	Created  bool
}

// Saver is the contract the save paths depend on.
type Saver interface {
	Save(ctx context.Context, identity string, payload Payload) (*Result, error)
}

// Gateway performs the create-or-update call for one document table. It
// holds no per-document state and never retries; retry policy belongs to the
// callers.
type Gateway struct {
	store      interfaces.StoreClient
	identities interfaces.IdentityProvider
	table      string
	timeout    time.Duration
	logger     interfaces.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithTable selects the store table. Defaults to the article table.
func WithTable(table string) Option {
	return func(g *Gateway) {
		if trimmed := strings.TrimSpace(table); trimmed != "" {
			g.table = trimmed
		}
	}
}

// WithTimeout overrides the per call bound. Non positive values keep the default.
func WithTimeout(timeout time.Duration) Option {
	return func(g *Gateway) {
		if timeout > 0 {
			g.timeout = timeout
		}
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger interfaces.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

var _ Saver = (*Gateway)(nil)

// New builds a gateway over store. identities resolves the author attached
// to newly created documents.
func New(store interfaces.StoreClient, identities interfaces.IdentityProvider, opts ...Option) *Gateway {
	g := &Gateway{
		store:      store,
		identities: identities,
		table:      domain.KindArticle.Table(),
		timeout:    DefaultTimeout,
		logger:     logging.NoOp(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Table returns the table this gateway writes to.
func (g *Gateway) Table() string {
	return g.table
}

// Save creates the document when identity is empty and updates it otherwise.
func (g *Gateway) Save(ctx context.Context, identity string, payload Payload) (*Result, error) {
	identity = strings.TrimSpace(identity)
	body := payload.clone()
	delete(body, domain.FieldID)

	logger := logging.WithFields(g.logger, map[string]any{
		"table":       g.table,
		"document_id": identity,
	})

	if identity == "" {
		// Resolving the author counts against the same bound as the write.
		record, err := bounded.Run(ctx, g.timeout, "create "+g.table, func(ctx context.Context) (map[string]any, error) {
			user, err := g.currentUser(ctx)
			if err != nil {
				return nil, err
			}
			body[domain.FieldAuthorID] = user.ID
			return g.store.Create(ctx, g.table, body)
		})
		if errors.Is(err, domain.ErrUnauthorized) {
			logger.Warn("gateway.create.unauthorized", "error", err)
			return nil, err
		}
		if err != nil {
			return nil, g.fail(logger, "gateway.create.failed", err)
		}
		id := recordID(record)
		if id == "" {
			return nil, g.fail(logger, "gateway.create.failed", errors.New("store returned a record without an id"))
		}
		logger.Debug("gateway.create.completed", "document_id", id)
		return &Result{Identity: id, Record: record, Created: true}, nil
	}

	record, err := bounded.Run(ctx, g.timeout, "update "+g.table, func(ctx context.Context) (map[string]any, error) {
		return g.store.Update(ctx, g.table, identity, body)
	})
	if err != nil {
		return nil, g.fail(logger, "gateway.update.failed", err)
	}
	id := recordID(record)
	if id == "" {
		id = identity
	}
	logger.Debug("gateway.update.completed")
	return &Result{Identity: id, Record: record}, nil
}

func (g *Gateway) currentUser(ctx context.Context) (*interfaces.User, error) {
	if g.identities == nil {
		return nil, domain.UnauthorizedError("no identity provider configured")
	}
	user, err := g.identities.CurrentUser(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, domain.UnauthorizedError(fmt.Sprintf("resolve current user: %v", err))
	}
	if user == nil || strings.TrimSpace(user.ID) == "" {
		return nil, domain.UnauthorizedError("sign in to create documents")
	}
	return user, nil
}

func (g *Gateway) fail(logger interfaces.Logger, event string, err error) error {
	switch {
	case errors.Is(err, domain.ErrTimeout):
		logger.Warn(event, "error", err, "timeout", g.timeout)
		return err
	case errors.Is(err, context.Canceled):
		logger.Debug(event, "error", err)
		return err
	default:
		wrapped := domain.StoreError(err)
		logger.Error(event, "error", wrapped)
		return wrapped
	}
}

func (p Payload) clone() map[string]any {
	out := make(map[string]any, len(p)+1)
	for key, value := range p {
		out[key] = value
	}
	return out
}

func recordID(record map[string]any) string {
	if record == nil {
		return ""
	}
	switch id := record[domain.FieldID].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(id)
	case fmt.Stringer:
		return id.String()
	default:
		return fmt.Sprint(id)
	}
}
