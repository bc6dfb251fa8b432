package datawarehouse

import (
	"net/url"
	"testing"

	"github.com/straye-as/season-planning-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildConnectionString(t *testing.T) {
	t.Run("host, port and database", func(t *testing.T) {
		raw, err := buildConnectionString(&config.ERPConfig{URL: "erp.straye.local:14330/Purchasing", User: "reader", Password: "p@ss/word"})
		require.NoError(t, err)

		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, "sqlserver", u.Scheme)
		assert.Equal(t, "erp.straye.local:14330", u.Host)
		assert.Equal(t, "reader", u.User.Username())
		password, _ := u.User.Password()
		assert.Equal(t, "p@ss/word", password)
		assert.Equal(t, "Purchasing", u.Query().Get("database"))
		assert.Equal(t, "true", u.Query().Get("encrypt"))
	})

	t.Run("default port", func(t *testing.T) {
		raw, err := buildConnectionString(&config.ERPConfig{URL: "erp.straye.local", User: "reader", Password: "x"})
		require.NoError(t, err)

		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, "erp.straye.local:1433", u.Host)
		assert.Empty(t, u.Query().Get("database"))
	})

	t.Run("missing host", func(t *testing.T) {
		_, err := buildConnectionString(&config.ERPConfig{URL: "/Purchasing"})
		assert.Error(t, err)
	})
}

func TestViewNamePattern(t *testing.T) {
	for _, name := range []string{"v_purchase_orders", "dbo.v_goods_receipts", "_staging.PO2025"} {
		assert.True(t, viewNamePattern.MatchString(name), name)
	}
	for _, name := range []string{"", "dbo.", "a.b.c", "1view", "dbo.v;DROP", "v po", "[dbo].[v]"} {
		assert.False(t, viewNamePattern.MatchString(name), name)
	}
}
