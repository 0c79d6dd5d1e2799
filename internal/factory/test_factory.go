package factory

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/shellgame/internal/dependencies/mocks"
	"github.com/mcoot/shellgame/internal/services/identity"
	"github.com/mcoot/shellgame/internal/storage/memory"
	"github.com/mcoot/shellgame/internal/testutil"
)

// TestTokenSecret signs tokens issued by a TestApp
const TestTokenSecret = "test-token-secret"

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	app := newWithDependencies(store, "", mockClock, mockRandom, identity.Config{
		TokenSecret: []byte(TestTokenSecret),
		TokenTTL:    time.Hour,
		BcryptCost:  bcrypt.MinCost,
	}, testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}

// FormSession queues the draws for the next formation so that players
// keep join order and the ball hides at hidden
func (t *TestApp) FormSession(hidden int) {
	t.MockRandom.QueueSession(hidden)
}
