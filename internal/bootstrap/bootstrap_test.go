package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mo-amir99/lms-access-gateway/pkg/database/migrations"
	"github.com/mo-amir99/lms-access-gateway/pkg/logger"
)

func TestMigrationsRegistered(t *testing.T) {
	names := migrations.Names()
	assert.Contains(t, names, "section_constraints")
	assert.Contains(t, names, "activation_codes_unused_index")
	assert.Contains(t, names, "subject_activation_codes_unused_index")
	assert.Len(t, Models(), 10)
}

func TestEnsureBootstrapAdminInput(t *testing.T) {
	require.NoError(t, EnsureBootstrapAdmin(context.Background(), nil, "  ", logger.Discard()))

	err := EnsureBootstrapAdmin(context.Background(), nil, "not-a-uuid", logger.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LMS_BOOTSTRAP_ADMIN_ID")
}
