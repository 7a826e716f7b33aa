package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"flightsurety/internal/accounts/handler/mocks"
	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
	"flightsurety/pkg/platform/httputil"
	"flightsurety/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

var (
	adminAddr = domain.MustAddress("0x627306090abab3a6e1400e9345bc60c78a8bef57")
	buyerAddr = domain.MustAddress("0xc5fdf4076b8f3a5357c5e395ab970b5b54098fef")
)

func newRouter(t *testing.T) (chi.Router, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	service := mocks.NewMockService(ctrl)
	h := New(service, nil)
	r := chi.NewRouter()
	h.Register(r)
	h.RegisterProtected(r)
	return r, service
}

func TestHandleBalance(t *testing.T) {
	r, service := newRouter(t)
	service.EXPECT().BalanceOf(gomock.Any(), buyerAddr).Return(domain.Ether(2), nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/accounts/"+buyerAddr.String()+"/balance", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp BalanceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "2000000000000000000", resp.Balance)
}

func TestHandleCustodyBalance(t *testing.T) {
	r, service := newRouter(t)
	service.EXPECT().CustodyBalance(gomock.Any()).Return(domain.Wei(7), nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/custody/balance", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"balance":"7"`)
}

func TestHandleCredit(t *testing.T) {
	credit := func(r chi.Router, caller domain.Address, amount string) *httptest.ResponseRecorder {
		body, err := json.Marshal(httputil.AmountRequest{Amount: amount})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/admin/accounts/"+buyerAddr.String()+"/credit", bytes.NewReader(body))
		if caller != "" {
			req = req.WithContext(requestcontext.WithCaller(req.Context(), caller))
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("anonymous", func(t *testing.T) {
		r, _ := newRouter(t)
		assert.Equal(t, http.StatusUnauthorized, credit(r, "", "1").Code)
	})

	t.Run("credited", func(t *testing.T) {
		r, service := newRouter(t)
		service.EXPECT().Credit(gomock.Any(), adminAddr, buyerAddr, domain.Wei(5)).Return(domain.Wei(12), nil)
		w := credit(r, adminAddr, "5")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"balance":"12"`)
	})

	t.Run("non-admin", func(t *testing.T) {
		r, service := newRouter(t)
		service.EXPECT().Credit(gomock.Any(), buyerAddr, buyerAddr, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "caller is not the administrator"))
		assert.Equal(t, http.StatusUnauthorized, credit(r, buyerAddr, "5").Code)
	})

	t.Run("bad amount", func(t *testing.T) {
		r, _ := newRouter(t)
		assert.NotEqual(t, http.StatusOK, credit(r, adminAddr, "-1").Code)
	})
}
