package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdrianMsc/msc-component-status-ws/pkg/config"
	"github.com/AdrianMsc/msc-component-status-ws/pkg/observability"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"serve", "healthcheck", "version"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}

	flag := root.PersistentFlags().Lookup("env-file")
	require.NotNil(t, flag)
	assert.Equal(t, ".env", flag.DefValue)
}

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version", "--env-file", ""})

	require.NoError(t, root.Execute())
	assert.Equal(t, version+"\n", out.String())
}

func TestServeFlags_Apply(t *testing.T) {
	t.Setenv("MSC_DATABASE_URL", "postgres://localhost/msc?sslmode=disable")
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	var flags serveFlags
	cmd := &cobra.Command{Use: "serve"}
	flags.bind(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--port", "7000", "--static-dir", "./public", "--migrate"}))

	require.NoError(t, flags.apply(cmd, cfg))
	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort, "unset flags keep the environment value")
	assert.Equal(t, "./public", cfg.Server.StaticDir)
	assert.True(t, cfg.Storage.AutoMigrate)
}

func TestServeFlags_ApplyValidates(t *testing.T) {
	t.Setenv("MSC_DATABASE_URL", "postgres://localhost/msc?sslmode=disable")
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	var flags serveFlags
	cmd := &cobra.Command{Use: "serve"}
	flags.bind(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--port", "9090"}))

	assert.Error(t, flags.apply(cmd, cfg), "API and health ports must differ")
}

func newQuietLogger() (*observability.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return observability.NewLogger(observability.DebugLevel, buf), buf
}

func TestScheduleJobs(t *testing.T) {
	logger, _ := newQuietLogger()
	c := cron.New()

	calls := 0
	err := scheduleJobs(c, []job{
		{name: "a", schedule: "@every 1m", run: func(ctx context.Context) error { calls++; return nil }},
		{name: "b", schedule: "@every 5m", run: func(ctx context.Context) error { calls++; return nil }},
	}, logger)
	require.NoError(t, err)

	entries := c.Entries()
	require.Len(t, entries, 2)
	for _, e := range entries {
		e.Job.Run()
	}
	assert.Equal(t, 2, calls)
}

func TestScheduleJobs_InvalidSchedule(t *testing.T) {
	logger, _ := newQuietLogger()

	err := scheduleJobs(cron.New(), []job{
		{name: "broken", schedule: "not a schedule", run: func(ctx context.Context) error { return nil }},
	}, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestRunJob_LogsFailures(t *testing.T) {
	logger, buf := newQuietLogger()

	runJob(job{name: "flaky", run: func(ctx context.Context) error {
		return errors.New("boom")
	}}, logger)

	assert.Contains(t, buf.String(), "Maintenance job failed")
	assert.Contains(t, buf.String(), "flaky")
}

func TestRunJob_RecoversPanics(t *testing.T) {
	logger, buf := newQuietLogger()

	assert.NotPanics(t, func() {
		runJob(job{name: "explodes", run: func(ctx context.Context) error {
			panic("unexpected")
		}}, logger)
	})
	assert.Contains(t, buf.String(), "PANIC recovered")
}

func TestRunJob_HasDeadline(t *testing.T) {
	logger, _ := newQuietLogger()

	var deadline time.Time
	runJob(job{name: "deadline", run: func(ctx context.Context) error {
		deadline, _ = ctx.Deadline()
		return nil
	}}, logger)

	assert.WithinDuration(t, time.Now().Add(jobTimeout), deadline, time.Second)
}

func TestCleanupJob(t *testing.T) {
	logger, _ := newQuietLogger()
	called := false

	j := cleanupJob(func() int { called = true; return 3 }, logger)
	require.NoError(t, j.run(context.Background()))
	assert.True(t, called)
}

func TestReplicaJob(t *testing.T) {
	pruned := false
	j := replicaJob(func(ctx context.Context) int { pruned = true; return 0 })

	require.NoError(t, j.run(context.Background()))
	assert.True(t, pruned)
}

func TestStatsJob(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	stats := func() sql.DBStats { return sql.DBStats{OpenConnections: 4, InUse: 1, Idle: 3} }

	j := statsJob(metrics, stats, func(ctx context.Context) (int64, error) { return 12, nil })
	require.NoError(t, j.run(context.Background()))

	assert.Equal(t, float64(4), testutil.ToFloat64(metrics.DBConnectionsOpen))
	assert.Equal(t, float64(12), testutil.ToFloat64(metrics.ComponentsTotal))
}

func TestStatsJob_CountError(t *testing.T) {
	stats := func() sql.DBStats { return sql.DBStats{} }

	j := statsJob(nil, stats, func(ctx context.Context) (int64, error) { return 0, errors.New("db down") })
	err := j.run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestReportHealth(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	checker := observability.NewHealthChecker(db, nil)
	checker.AddCheck("images", false, func(ctx context.Context) error { return errors.New("bucket missing") })

	var out bytes.Buffer
	require.NoError(t, reportHealth(context.Background(), checker, &out), "a degraded service is still ready")
	assert.Contains(t, out.String(), `"status": "degraded"`)
	assert.Contains(t, out.String(), "bucket missing")
}

func TestReportHealth_Unhealthy(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	var out bytes.Buffer
	err = reportHealth(context.Background(), observability.NewHealthChecker(db, nil), &out)
	require.Error(t, err)
	assert.Contains(t, out.String(), `"status": "unhealthy"`)
}
