package datawarehouse_test

import (
	"context"
	"testing"
	"time"

	"github.com/straye-as/season-planning-api/internal/config"
	"github.com/straye-as/season-planning-api/internal/datawarehouse"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewClient_Disabled(t *testing.T) {
	logger := zap.NewNop()

	client, err := datawarehouse.NewClient(nil, logger)
	assert.NoError(t, err)
	assert.Nil(t, client)

	client, err = datawarehouse.NewClient(&config.ERPConfig{Enabled: false}, logger)
	assert.NoError(t, err)
	assert.Nil(t, client)
}

func TestNewClient_MissingCredentials(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.ERPConfig
	}{
		{"missing URL", &config.ERPConfig{Enabled: true, User: "erp", Password: "secret"}},
		{"missing user", &config.ERPConfig{Enabled: true, URL: "erp.local:1433/Purchasing", Password: "secret"}},
		{"missing password", &config.ERPConfig{Enabled: true, URL: "erp.local:1433/Purchasing", User: "erp"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := datawarehouse.NewClient(tt.cfg, zap.NewNop())
			assert.NoError(t, err)
			assert.Nil(t, client)
		})
	}
}

func TestNewClient_RejectsUnsafeViewNames(t *testing.T) {
	cfg := &config.ERPConfig{
		Enabled:  true,
		URL:      "erp.local:1433/Purchasing",
		User:     "erp",
		Password: "secret",
		POView:   "dbo.v_purchase_orders; DROP TABLE x",
		GRNView:  "dbo.v_goods_receipts",
	}

	client, err := datawarehouse.NewClient(cfg, zap.NewNop())
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestNilClient(t *testing.T) {
	var client *datawarehouse.Client

	assert.NoError(t, client.Close())
	assert.Equal(t, "disabled", client.HealthCheck(context.Background()).Status)

	_, err := client.FetchPurchaseOrders(context.Background(), time.Time{})
	assert.Error(t, err)
	_, err = client.FetchGoodsReceipts(context.Background(), time.Time{})
	assert.Error(t, err)
}
