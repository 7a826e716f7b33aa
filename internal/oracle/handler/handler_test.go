package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"flightsurety/internal/ledger/models"
	"flightsurety/internal/oracle"
	"flightsurety/internal/oracle/handler/mocks"
	"flightsurety/pkg/domain"
	dErrors "flightsurety/pkg/domain-errors"
	"flightsurety/pkg/platform/httputil"
	"flightsurety/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

var oracleAddr = domain.MustAddress("0x821aea9a577a9b44299b9c15c88cf3087f3b5544")

type OracleHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestOracleHandlerSuite(t *testing.T) {
	suite.Run(t, new(OracleHandlerSuite))
}

func (s *OracleHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	h := New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.router = chi.NewRouter()
	h.Register(s.router)
	h.RegisterProtected(s.router)
}

func (s *OracleHandlerSuite) do(method, path string, body any, caller domain.Address) *httptest.ResponseRecorder {
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

func (s *OracleHandlerSuite) decode(w *httptest.ResponseRecorder, out any) {
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), out))
}

func (s *OracleHandlerSuite) TestFee() {
	s.service.EXPECT().GetRegistrationFee().Return(domain.Ether(1))

	w := s.do(http.MethodGet, "/oracles/fee", nil, "")

	s.Equal(http.StatusOK, w.Code)
	var resp FeeResponse
	s.decode(w, &resp)
	s.Equal("1000000000000000000", resp.Fee)
}

func (s *OracleHandlerSuite) TestRegisterOracle() {
	s.Run("requires caller", func() {
		w := s.do(http.MethodPost, "/oracles", httputil.AmountRequest{Amount: "1"}, "")
		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("returns indexes as numbers", func() {
		s.service.EXPECT().RegisterOracle(gomock.Any(), oracleAddr, domain.Ether(1)).
			Return(&models.Oracle{Address: oracleAddr, Indexes: models.OracleIndexes{3, 3, 7}}, nil)

		w := s.do(http.MethodPost, "/oracles", httputil.AmountRequest{Amount: domain.Ether(1).String()}, oracleAddr)

		s.Equal(http.StatusCreated, w.Code)
		var resp OracleResponse
		s.decode(w, &resp)
		s.Equal([]int{3, 3, 7}, resp.Indexes)
	})

	s.Run("insufficient fee is payment required", func() {
		s.service.EXPECT().RegisterOracle(gomock.Any(), oracleAddr, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeInsufficientFee, "registration fee is 1 ether"))

		w := s.do(http.MethodPost, "/oracles", httputil.AmountRequest{Amount: "10"}, oracleAddr)
		s.Equal(http.StatusPaymentRequired, w.Code)
	})
}

func (s *OracleHandlerSuite) TestMyIndexes() {
	s.service.EXPECT().GetMyIndexes(gomock.Any(), oracleAddr).Return(models.OracleIndexes{1, 2, 9}, nil)

	w := s.do(http.MethodGet, "/oracles/me/indexes", nil, oracleAddr)

	s.Equal(http.StatusOK, w.Code)
	var resp OracleResponse
	s.decode(w, &resp)
	s.Equal(oracleAddr.String(), resp.Oracle)
	s.Equal([]int{1, 2, 9}, resp.Indexes)
}

func (s *OracleHandlerSuite) TestFetchFlightStatus() {
	opened := time.Date(2019, 8, 5, 12, 0, 0, 0, time.UTC)
	s.service.EXPECT().FetchFlightStatus(gomock.Any(), oracleAddr, models.FlightCode("UAL925")).
		Return(models.NewStatusRequest(models.RequestKey{Index: 4, Flight: "UAL925", Timestamp: opened.Unix()}, oracleAddr, opened), nil)

	w := s.do(http.MethodPost, "/flights/UAL925/status-requests", nil, oracleAddr)

	s.Equal(http.StatusAccepted, w.Code)
	var resp StatusRequestResponse
	s.decode(w, &resp)
	s.Equal(uint8(4), resp.Index)
	s.Equal(opened.Unix(), resp.Timestamp)
	s.True(resp.IsOpen)
}

func (s *OracleHandlerSuite) TestSubmitResponse() {
	s.Run("rejects undefined status before calling the engine", func() {
		w := s.do(http.MethodPost, "/oracle-responses", SubmitResponseRequest{Index: 1, Flight: "UAL925", Status: 21}, oracleAddr)
		s.Equal(http.StatusUnprocessableEntity, w.Code)
	})

	s.Run("rejects out of range index", func() {
		w := s.do(http.MethodPost, "/oracle-responses", SubmitResponseRequest{Index: 300, Flight: "UAL925", Status: 20}, oracleAddr)
		s.Equal(http.StatusUnprocessableEntity, w.Code)
	})

	s.Run("finalizing response", func() {
		s.service.EXPECT().
			SubmitOracleResponse(gomock.Any(), oracleAddr, uint8(1), models.FlightCode("UAL925"), int64(0), models.StatusLateAirline).
			Return(&oracle.SubmissionResult{
				Key:          models.RequestKey{Index: 1, Flight: "UAL925", Timestamp: 1564999200},
				Accepted:     true,
				Responses:    3,
				Finalized:    true,
				FlightStatus: models.StatusLateAirline,
			}, nil)

		w := s.do(http.MethodPost, "/oracle-responses", SubmitResponseRequest{Index: 1, Flight: "UAL925", Status: 20}, oracleAddr)

		s.Equal(http.StatusOK, w.Code)
		var resp SubmissionResponse
		s.decode(w, &resp)
		s.True(resp.Finalized)
		s.Equal("late_airline", resp.FlightStatus)
		s.Equal(int64(1564999200), resp.Timestamp)
	})

	s.Run("index mismatch is forbidden", func() {
		s.service.EXPECT().SubmitOracleResponse(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeIndexMismatch, "index 1 is not assigned to caller"))

		w := s.do(http.MethodPost, "/oracle-responses", SubmitResponseRequest{Index: 1, Flight: "UAL925", Status: 10}, oracleAddr)
		s.Equal(http.StatusForbidden, w.Code)
	})
}

func (s *OracleHandlerSuite) TestSetFlightStatus() {
	s.service.EXPECT().SetFlightStatus(gomock.Any(), oracleAddr, models.FlightCode("UAL925"), models.StatusOnTime).
		Return(&models.Flight{Code: "UAL925", Airline: oracleAddr, Status: models.StatusOnTime, IsRegistered: true}, nil)

	w := s.do(http.MethodPut, "/admin/flights/UAL925/status", SetStatusRequest{Status: 10}, oracleAddr)

	s.Equal(http.StatusOK, w.Code)
}
