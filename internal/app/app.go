// Package app wires the demo domain, users and their posts, on top of the
// larago core: one shared event dispatcher, one shared scope registry, the
// observers and the mutators.
package app

import (
	"strings"
	"time"

	"github.com/leandroluk/larago/core"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// Options configures New.
type Options struct {
	Logger     zerolog.Logger
	BcryptCost int
	Now        func() time.Time
}

// App holds the models of the demo domain.
type App struct {
	Users *core.Model
	Posts *core.Model

	// UserPosts is users -> posts, PostAuthor is posts -> users.
	UserPosts  *core.Relation
	PostAuthor *core.Relation

	Dispatcher *core.Dispatcher
	Scopes     *core.ScopeRegistry
}

// New builds the models on driver and registers the observers.
func New(driver core.Driver, opts Options) (*App, error) {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	dispatcher := core.NewDispatcher(core.DispatcherLogger(opts.Logger))
	scopes := core.NewScopeRegistry()
	shared := []core.Option{
		core.WithDispatcher(dispatcher),
		core.WithScopes(scopes),
		core.WithLogger(opts.Logger),
		core.WithClock(opts.Now),
		core.WithMiddleware(core.LoggingMiddleware(opts.Logger)),
		core.Timestamps(),
		core.SoftDeletes(),
		core.Dates(core.DefaultCreatedAtColumn, core.DefaultUpdatedAtColumn, core.DefaultDeletedAtColumn),
	}

	users := core.NewModel("users", driver, append([]core.Option{
		core.Fillable("name", "email", "password", "active"),
		core.Hidden("password"),
		core.Mutate("email", normalizeEmail),
		core.Mutate("password", hashPassword(opts.BcryptCost)),
		core.Casts(map[string]core.Cast{"active": core.AsBool}),
		core.Dates("verified_at"),
		core.Accessors(map[string]core.Accessor{"display_name": displayName}),
	}, shared...)...)
	users.Scope("active", func(query *core.Query, args ...any) {
		query.Where("active", "=", true)
	})
	users.Scope("verified", func(query *core.Query, args ...any) {
		query.WhereNotNull("verified_at")
	})

	posts := core.NewModel("posts", driver, append([]core.Option{
		core.Fillable("title", "body", "user_id"),
		core.Guarded("published_at"),
		core.Dates("published_at"),
	}, shared...)...)
	posts.Scope("published", func(query *core.Query, args ...any) {
		query.WhereNotNull("published_at")
	})
	posts.Scope("draft", func(query *core.Query, args ...any) {
		query.WhereNull("published_at")
	})
	posts.Scope("by", func(query *core.Query, args ...any) {
		if len(args) > 0 {
			query.Where("user_id", "=", args[0])
		}
	})

	a := &App{
		Users:      users,
		Posts:      posts,
		UserPosts:  users.HasMany(posts, "user_id", ""),
		PostAuthor: posts.BelongsTo(users, "user_id", ""),
		Dispatcher: dispatcher,
		Scopes:     scopes,
	}
	users.Scope("with_posts", func(query *core.Query, args ...any) {
		query.Has(a.UserPosts)
	})
	if err := users.Observe(&UserObserver{app: a, logger: opts.Logger}); err != nil {
		return nil, err
	}
	if err := posts.Saving(a.requireAuthor); err != nil {
		return nil, err
	}
	return a, nil
}

// displayName falls back to "Anonymous" for users without a name.
func displayName(user *core.Record) any {
	if name, _ := user.Attributes.Get("name").(string); strings.TrimSpace(name) != "" {
		return name
	}
	return "Anonymous"
}

func normalizeEmail(value any) any {
	if s, ok := value.(string); ok {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return value
}

// hashPassword stores bcrypt hashes. Values that already are hashes are
// kept, so hydrated or copied records are not hashed twice. When hashing
// fails the plain value is kept and UserObserver.Saving vetoes the save.
func hashPassword(cost int) core.Mutator {
	return func(value any) any {
		plain, ok := value.(string)
		if !ok || plain == "" || IsPasswordHash(plain) {
			return value
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
		if err != nil {
			return value
		}
		return string(hash)
	}
}

// IsPasswordHash reports whether s is a bcrypt hash.
func IsPasswordHash(s string) bool {
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}

// CheckPassword reports whether plain matches the user's stored hash.
func CheckPassword(user *core.Record, plain string) bool {
	hash, ok := user.Get("password").(string)
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
