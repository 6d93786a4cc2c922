package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ad/go-workshop-progress/internal/config"
	"github.com/ad/go-workshop-progress/internal/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenStore_SQLite(t *testing.T) {
	cfg := &config.Config{DBPath: filepath.Join(t.TempDir(), "workshop.db")}

	st, err := OpenStore(cfg, zap.NewNop())
	require.NoError(t, err)
	defer st.Close()

	id, err := st.CreateUser(context.Background(), &models.User{Email: "a@example.com", Role: models.RoleParticipant})
	require.NoError(t, err)
	u, err := st.GetUser(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "a@example.com", u.Email)
}

func TestNewNotifier_Disabled(t *testing.T) {
	n, err := NewNotifier(context.Background(), &config.Config{}, zap.NewNop())
	require.NoError(t, err)
	require.Nil(t, n)
}
