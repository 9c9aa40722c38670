package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"

	"bakimla-reward/pkg/config"
)

func TestDialect(t *testing.T) {
	cases := []struct {
		typ     string
		name    string
		wantErr bool
	}{
		{typ: "postgres", name: "postgres"},
		{typ: "", name: "postgres"},
		{typ: "mysql", name: "mysql"},
		{typ: "sqlite", name: "sqlite"},
		{typ: "oracle", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.typ, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Database.Type = tc.typ
			cfg.Database.Host = "localhost"
			cfg.Database.Port = "5432"
			cfg.Database.DBNAME = "bakimla"

			d, err := Dialect(cfg)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.name, d.Name())
		})
	}
}

func TestExtractDBNameFromDSN(t *testing.T) {
	require.Equal(t, "bakimla", extractDBNameFromDSN("host=localhost user=u password=p dbname=bakimla port=5432"))
	require.Equal(t, "bakimla", extractDBNameFromDSN("u:p@tcp(localhost:3306)/bakimla?charset=utf8mb4"))
	require.Equal(t, "unknown", extractDBNameFromDSN("host=localhost"))
}

func TestZapGormLogger_Trace(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewZapGormLogger(zap.New(core), gormlogger.Warn, false)

	fc := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(context.Background(), time.Now(), fc, nil)
	require.Zero(t, logs.Len())

	l.Trace(context.Background(), time.Now(), fc, gormlogger.ErrRecordNotFound)
	require.Zero(t, logs.Len())

	l.Trace(context.Background(), time.Now(), fc, errors.New("boom"))
	require.Equal(t, 1, logs.FilterMessage("gorm.query").Len())

	l.Trace(context.Background(), time.Now().Add(-time.Second), fc, nil)
	require.Equal(t, 1, logs.FilterMessage("gorm.slow_query").Len())

	silent := l.LogMode(gormlogger.Silent)
	silent.Trace(context.Background(), time.Now(), fc, errors.New("boom"))
	require.Equal(t, 2, logs.Len())
}
