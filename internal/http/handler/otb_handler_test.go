package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTBHandler_Calculate(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{"positive", `{"plannedSales":100000,"plannedClosingStock":50000,"openingStock":30000,"onOrder":10000}`, "110000"},
		{"negative result is kept", `{"plannedSales":"10000","plannedClosingStock":"4000","openingStock":"20000","onOrder":"10000"}`, "-16000"},
		{"fractional", `{"plannedSales":0.1,"plannedClosingStock":0.2,"openingStock":0.05,"onOrder":0.05}`, "0.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := srv.do(t, context.Background(), http.MethodPost, "/otb/calculate", json.RawMessage(tt.body))
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var resp domain.CalculateOTBResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.expected, resp.ApprovedSpendLimit.String())
		})
	}

	t.Run("negative input is rejected", func(t *testing.T) {
		w := srv.do(t, context.Background(), http.MethodPost, "/otb/calculate",
			json.RawMessage(`{"plannedSales":1000,"plannedClosingStock":0,"openingStock":-1,"onOrder":0}`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		problem := decodeProblem(t, w)
		assert.Equal(t, domain.ErrorTypeValidation, problem.Type)
		assert.Contains(t, problem.Errors, "openingStock")
	})
}
