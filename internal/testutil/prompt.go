package testutil

import (
	"context"

	"shift-redeemer/internal/components/prompt"

	"github.com/stretchr/testify/mock"
)

// MockPrompter is a prompt.Prompter driven by testify/mock.
type MockPrompter struct {
	mock.Mock
}

func (m *MockPrompter) Credentials(ctx context.Context) (prompt.Credentials, error) {
	args := m.Called(ctx)
	return args.Get(0).(prompt.Credentials), args.Error(1)
}

// FakeCredentials are the credentials FakeShift accepts.
func FakeCredentials() prompt.Credentials {
	return prompt.Credentials{Email: FakeEmail, Password: FakePassword}
}
