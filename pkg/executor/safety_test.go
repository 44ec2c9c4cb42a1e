package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spiderbench/evalcore/pkg/apperrors"
)

func TestValidateSafe_AllowsSelect(t *testing.T) {
	err := validateSafe("SELECT id, name FROM customers WHERE id = 1")
	assert.NoError(t, err)
}

func TestValidateSafe_AllowsTrailingSemicolon(t *testing.T) {
	err := validateSafe("SELECT 1;")
	assert.NoError(t, err)
}

func TestValidateSafe_RejectsEmpty(t *testing.T) {
	err := validateSafe("   ")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnsafeQuery)
}

func TestValidateSafe_RejectsMutatingKeywords(t *testing.T) {
	for _, sql := range []string{
		"INSERT INTO t VALUES (1)",
		"update t set x = 1",
		"DELETE FROM t",
		"DROP TABLE t",
		"CREATE TABLE t (id int)",
		"ALTER TABLE t ADD COLUMN x int",
		"TRUNCATE t",
		"GRANT SELECT ON t TO u",
		"REVOKE SELECT ON t FROM u",
	} {
		t.Run(sql, func(t *testing.T) {
			err := validateSafe(sql)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrUnsafeQuery)
		})
	}
}

func TestValidateSafe_RejectsMultipleStatements(t *testing.T) {
	err := validateSafe("SELECT 1; SELECT 2;")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnsafeQuery)
}

func TestValidateSafe_AllowsSemicolonInStringLiteral(t *testing.T) {
	err := validateSafe("SELECT * FROM t WHERE note = 'a; b'")
	assert.NoError(t, err)
}

func TestCountStatements(t *testing.T) {
	assert.Equal(t, 1, countStatements("SELECT 1"))
	assert.Equal(t, 1, countStatements("SELECT 1;"))
	assert.Equal(t, 2, countStatements("SELECT 1; SELECT 2"))
	assert.Equal(t, 1, countStatements("SELECT ';' AS x"))
}
