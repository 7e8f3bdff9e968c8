package saga

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStudentExternalID(t *testing.T) {
	t.Run("fixed length with prefix", func(t *testing.T) {
		id := StudentExternalID("c7f4b8f0-1111-4222-8333-944445555666")
		assert.Len(t, id, 15)
		assert.True(t, strings.HasPrefix(id, "STU-"))
	})

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, StudentExternalID("student-42"), StudentExternalID("student-42"))
	})

	t.Run("shared prefix inputs stay distinct", func(t *testing.T) {
		a := StudentExternalID("batch-2026-000000001")
		b := StudentExternalID("batch-2026-000000002")
		assert.NotEqual(t, a, b)
	})

	t.Run("hex after prefix", func(t *testing.T) {
		id := StudentExternalID("anything")
		for _, c := range id[len("STU-"):] {
			assert.Contains(t, "0123456789abcdef", string(c))
		}
	})
}
