// Package testutil holds helpers shared by the end-to-end and integration
// tests: deterministic actors, an HTTP client for the API envelope and an
// event recorder.
package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/shared"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// actorNamespace seeds the name-based actor ids, so the same name maps to the
// same id in every run.
var actorNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://orderdesk.test/actors"))

func actor(role shared.Role, name string) shared.Actor {
	seed := strings.ToLower(string(role)) + ":" + name
	return shared.Actor{ID: uuid.NewSHA1(actorNamespace, []byte(seed)), Role: role}
}

func Buyer(name string) shared.Actor    { return actor(shared.RoleBuyer, name) }
func Supplier(name string) shared.Actor { return actor(shared.RoleSupplier, name) }
func Admin() shared.Actor               { return actor(shared.RoleAdmin, "root") }

// ContextWithTimeout is cancelled after timeout or when the test ends.
func ContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}
