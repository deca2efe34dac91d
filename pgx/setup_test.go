package pgx

import (
	"context"
	"errors"
	"testing"

	"github.com/arloliu/sqltrace"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecer records executed commands.
type fakeExecer struct {
	commands []string
	err      error
}

func (f *fakeExecer) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	f.commands = append(f.commands, sql)

	return pgconn.CommandTag{}, nil
}

func TestSetupAutoExplain(t *testing.T) {
	exec := &fakeExecer{}
	cfg := &sqltrace.AutoExplainConfig{MinDuration: 10}

	err := SetupAutoExplain(context.Background(), exec, cfg)
	require.NoError(t, err)

	require.NotEmpty(t, exec.commands)
	assert.Equal(t, "LOAD 'auto_explain';", exec.commands[0])
	assert.Equal(t, "SELECT pg_reload_conf();", exec.commands[len(exec.commands)-1])

	assert.Contains(t, exec.commands, "ALTER SYSTEM SET auto_explain.log_min_duration = 10;")
	assert.Contains(t, exec.commands, "ALTER SYSTEM SET auto_explain.log_analyze = true;")
	assert.Contains(t, exec.commands, "ALTER SYSTEM SET auto_explain.log_format = JSON;")
	assert.Contains(t, exec.commands, "ALTER SYSTEM SET auto_explain.log_level = notice;")
	assert.Contains(t, exec.commands, "ALTER SYSTEM SET auto_explain.sample_rate = 1;")
}

func TestSetupAutoExplain_NilConfigDefaults(t *testing.T) {
	exec := &fakeExecer{}

	err := SetupAutoExplain(context.Background(), exec, nil)
	require.NoError(t, err)
	assert.Contains(t, exec.commands, "ALTER SYSTEM SET auto_explain.log_min_duration = 100;")
	assert.Contains(t, exec.commands, "ALTER SYSTEM SET auto_explain.log_verbose = true;")
}

func TestSetupAutoExplain_DisabledSettings(t *testing.T) {
	exec := &fakeExecer{}
	off := false
	rate := 0.25
	cfg := &sqltrace.AutoExplainConfig{
		MinDuration: 500,
		SampleRate:  &rate,
		Buffers:     &off,
		WAL:         &off,
	}

	err := SetupAutoExplain(context.Background(), exec, cfg)
	require.NoError(t, err)
	assert.Contains(t, exec.commands, "ALTER SYSTEM SET auto_explain.log_buffers = false;")
	assert.Contains(t, exec.commands, "ALTER SYSTEM SET auto_explain.log_wal = false;")
	assert.Contains(t, exec.commands, "ALTER SYSTEM SET auto_explain.sample_rate = 0.25;")
}

func TestSetupAutoExplain_ZeroSampleRate(t *testing.T) {
	exec := &fakeExecer{}
	zero := 0.0

	err := SetupAutoExplain(context.Background(), exec, &sqltrace.AutoExplainConfig{
		MinDuration: 100,
		SampleRate:  &zero,
	})
	require.NoError(t, err)
	assert.Contains(t, exec.commands, "ALTER SYSTEM SET auto_explain.sample_rate = 0;")
}

func TestSetupAutoExplain_ExecError(t *testing.T) {
	execErr := errors.New("permission denied")
	exec := &fakeExecer{err: execErr}

	err := SetupAutoExplain(context.Background(), exec, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, execErr)
}
