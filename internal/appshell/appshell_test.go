package appshell

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Altius/stampipes/programs/readtools/internal/errkind"
)

func TestExecPassesExitCode(t *testing.T) {
	var got []string
	code := Exec(context.Background(), func(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
		got = argv
		return errkind.ExitUser
	}, []string{"QualityChecker"}, io.Discard, io.Discard)
	assert.Equal(t, errkind.ExitUser, code)
	assert.Equal(t, []string{"QualityChecker"}, got)
}
