package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"flightsurety/internal/insurance/handler/mocks"
	"flightsurety/internal/ledger/models"
	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
	"flightsurety/pkg/platform/httputil"
	"flightsurety/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

var buyerAddr = domain.MustAddress("0xc5fdf4076b8f3a5357c5e395ab970b5b54098fef")

const flight = models.FlightCode("UAL925-20190805")

type InsuranceHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestInsuranceHandlerSuite(t *testing.T) {
	suite.Run(t, new(InsuranceHandlerSuite))
}

func (s *InsuranceHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	h := New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.router = chi.NewRouter()
	h.Register(s.router)
	h.RegisterProtected(s.router)
}

func (s *InsuranceHandlerSuite) do(method, path string, body any, caller domain.Address) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if caller != "" {
		req = req.WithContext(requestcontext.WithCaller(req.Context(), caller))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *InsuranceHandlerSuite) policyResponse(w *httptest.ResponseRecorder) PolicyResponse {
	var resp PolicyResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *InsuranceHandlerSuite) TestBuy() {
	s.Run("requires caller", func() {
		w := s.do(http.MethodPost, "/insurance/"+flight.String(), httputil.AmountRequest{Amount: "1"}, "")
		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("success", func() {
		s.service.EXPECT().BuyInsurance(gomock.Any(), buyerAddr, flight, domain.Ether(1)).
			Return(&models.Policy{Flight: flight, Purchaser: buyerAddr, AmountPaid: domain.Ether(1)}, nil)

		w := s.do(http.MethodPost, "/insurance/"+flight.String(), httputil.AmountRequest{Amount: domain.Ether(1).String()}, buyerAddr)

		s.Equal(http.StatusOK, w.Code)
		resp := s.policyResponse(w)
		s.Equal("1000000000000000000", resp.AmountPaid)
		s.Empty(resp.Payout)
	})

	s.Run("over cap", func() {
		s.service.EXPECT().BuyInsurance(gomock.Any(), buyerAddr, flight, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodePremiumCapExceeded, "premium would exceed cap"))

		w := s.do(http.MethodPost, "/insurance/"+flight.String(), httputil.AmountRequest{Amount: "2000000000000000000"}, buyerAddr)
		s.Equal(http.StatusUnprocessableEntity, w.Code)
	})
}

func (s *InsuranceHandlerSuite) TestCancel() {
	s.service.EXPECT().CancelInsurance(gomock.Any(), buyerAddr, flight).
		Return(&models.Policy{Flight: flight, Purchaser: buyerAddr, AmountPaid: domain.Wei(500), IsCancelled: true}, nil)

	w := s.do(http.MethodDelete, "/insurance/"+flight.String(), nil, buyerAddr)

	s.Equal(http.StatusOK, w.Code)
	resp := s.policyResponse(w)
	s.True(resp.IsCancelled)
	s.Equal("500", resp.Refunded)
}

func (s *InsuranceHandlerSuite) TestPayout() {
	s.Run("paid", func() {
		s.service.EXPECT().PayoutInsurance(gomock.Any(), buyerAddr, flight).
			Return(&models.Policy{Flight: flight, Purchaser: buyerAddr, AmountPaid: domain.Wei(2), IsPaidOut: true, Payout: domain.Wei(3)}, nil)

		w := s.do(http.MethodPost, "/insurance/"+flight.String()+"/payout", nil, buyerAddr)

		s.Equal(http.StatusOK, w.Code)
		s.Equal("3", s.policyResponse(w).Payout)
	})

	for name, tc := range map[string]struct {
		code   dErrors.Code
		status int
	}{
		"not delayed":     {dErrors.CodeFlightNotDelayed, http.StatusConflict},
		"already settled": {dErrors.CodeAlreadySettled, http.StatusConflict},
		"no policy":       {dErrors.CodeNoActivePolicy, http.StatusNotFound},
		"custody short":   {dErrors.CodeInsufficientCustody, http.StatusPaymentRequired},
	} {
		s.Run(name, func() {
			s.service.EXPECT().PayoutInsurance(gomock.Any(), buyerAddr, flight).Return(nil, dErrors.New(tc.code, name))
			w := s.do(http.MethodPost, "/insurance/"+flight.String()+"/payout", nil, buyerAddr)
			s.Equal(tc.status, w.Code)
		})
	}
}

func (s *InsuranceHandlerSuite) TestGetPolicy() {
	s.service.EXPECT().GetInsurance(gomock.Any(), flight, buyerAddr).
		Return(models.PolicyView{Flight: flight, Purchaser: buyerAddr, AmountPaid: domain.Wei(0)}, nil)

	w := s.do(http.MethodGet, "/insurance/"+flight.String()+"/"+buyerAddr.String(), nil, "")

	s.Equal(http.StatusOK, w.Code)
	resp := s.policyResponse(w)
	s.Equal("0", resp.AmountPaid)
	s.False(resp.IsPaidOut)
}

func (s *InsuranceHandlerSuite) TestGetPolicyBadPurchaser() {
	w := s.do(http.MethodGet, "/insurance/"+flight.String()+"/nobody", nil, "")
	s.Equal(http.StatusBadRequest, w.Code)
}
