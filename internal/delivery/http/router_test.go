package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"clinic-queue/config"
	"clinic-queue/internal/delivery/dto"
	"clinic-queue/internal/delivery/http/handler"
	"clinic-queue/internal/delivery/http/middleware"
	"clinic-queue/internal/domain/entity"
	"clinic-queue/internal/infrastructure/database"
	"clinic-queue/internal/service"
	"clinic-queue/internal/testutil"
	"clinic-queue/internal/usecase"
	"clinic-queue/pkg/jwt"
	"clinic-queue/pkg/validator"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAppointmentUsecase struct {
	usecase.AppointmentUsecase
	err     error
	created *dto.CreateAppointmentRequest
}

func (s *stubAppointmentUsecase) CreateAppointment(ctx context.Context, req *dto.CreateAppointmentRequest) (*dto.AppointmentResponse, error) {
	s.created = req
	return &dto.AppointmentResponse{ID: uuid.New(), DoctorID: req.DoctorID, Status: string(entity.StatusBooked)}, nil
}

func (s *stubAppointmentUsecase) MarkArrived(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &dto.AppointmentResponse{ID: id, Status: string(entity.StatusArrived)}, nil
}

func (s *stubAppointmentUsecase) CompleteTreatment(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	return nil, s.err
}

type stubQueueUsecase struct {
	usecase.QueueUsecase
	err    error
	filter entity.QueueFilter
}

func (s *stubQueueUsecase) GetQueue(ctx context.Context, filter entity.QueueFilter) (*dto.QueueResponse, error) {
	s.filter = filter
	return &dto.QueueResponse{}, nil
}

func (s *stubQueueUsecase) SwapWithNext(ctx context.Context, id uuid.UUID) (*dto.SwapResultResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &dto.SwapResultResponse{AppointmentID: id}, nil
}

type stubAuditLogUsecase struct {
	usecase.AuditLogUsecase
}

func (stubAuditLogUsecase) GetAllAuditLogs(ctx context.Context) (*dto.AuditLogListResponse, error) {
	return &dto.AuditLogListResponse{}, nil
}

type routerFixture struct {
	handler      http.Handler
	jwt          *jwt.JWTService
	redis        *miniredis.Miniredis
	appointments *stubAppointmentUsecase
	queue        *stubQueueUsecase
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	jwtService := jwt.NewJWTService(config.JWTConfig{Secret: "router-test"})
	appointments := &stubAppointmentUsecase{}
	queue := &stubQueueUsecase{}
	v := validator.NewValidator()

	router := NewRouter(
		handler.NewAppointmentHandler(appointments, v),
		handler.NewQueueHandler(queue),
		handler.NewAuditLogHandler(stubAuditLogUsecase{}),
		middleware.NewAuthMiddleware(jwtService, client, testutil.NewLogger()),
		middleware.NewCORSMiddleware(""),
	)

	return &routerFixture{
		handler:      router.Setup(),
		jwt:          jwtService,
		redis:        mr,
		appointments: appointments,
		queue:        queue,
	}
}

// token issues a token and registers it as live, the way the identity service does.
func (f *routerFixture) token(t *testing.T, role string) string {
	t.Helper()
	userID := uuid.New()
	token, tokenID, err := f.jwt.GenerateAccessToken(userID, role+"@clinic.test", role, time.Hour)
	require.NoError(t, err)
	require.NoError(t, f.redis.Set(middleware.AccessTokenKeyPrefix+userID.String()+":"+tokenID, "1"))
	return token
}

func (f *routerFixture) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestRouter_HealthIsPublic(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(http.MethodGet, "/api/v1/health", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_RequiresToken(t *testing.T) {
	f := newRouterFixture(t)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/v1/queue", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/v1/queue", "garbage", "").Code)
}

func TestRouter_RejectsRevokedToken(t *testing.T) {
	f := newRouterFixture(t)
	token, _, err := f.jwt.GenerateAccessToken(uuid.New(), "x@clinic.test", entity.RoleAdmin, time.Hour)
	require.NoError(t, err)

	rec := f.do(http.MethodGet, "/api/v1/queue", token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_OperationalRoutesNeedStaffRole(t *testing.T) {
	f := newRouterFixture(t)
	id := uuid.New()

	rec := f.do(http.MethodPost, "/api/v1/appointments/"+id.String()+"/arrive", f.token(t, entity.RolePatient), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/appointments/"+id.String()+"/arrive", f.token(t, entity.RoleDoctor), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/admin/audit-logs", f.token(t, entity.RoleDoctor), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodGet, "/api/v1/admin/audit-logs", f.token(t, entity.RoleAdmin), "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_CreateAppointmentValidates(t *testing.T) {
	f := newRouterFixture(t)
	token := f.token(t, entity.RolePatient)

	rec := f.do(http.MethodPost, "/api/v1/appointments", token, `{"department":"general"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Error map[string]string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Error, "patient_id")
	assert.Contains(t, body.Error, "doctor_id")
	assert.Contains(t, body.Error, "scheduled_at")

	valid := `{"patient_id":"` + uuid.NewString() + `","doctor_id":"` + uuid.NewString() +
		`","department":"general","scheduled_at":"2025-03-10T09:00:00Z"}`
	rec = f.do(http.MethodPost, "/api/v1/appointments", token, valid)
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, f.appointments.created)
	assert.Equal(t, "general", f.appointments.created.Department)
}

func TestRouter_MapsDomainErrors(t *testing.T) {
	f := newRouterFixture(t)
	token := f.token(t, entity.RoleAdmin)
	id := uuid.New().String()

	f.queue.err = service.ErrAppointmentNotFound
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/api/v1/queue/swap/"+id, token, "").Code)

	f.queue.err = database.ErrTransactionConflict
	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/api/v1/queue/swap/"+id, token, "").Code)

	f.queue.err = nil
	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/v1/queue/swap/"+id, token, "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/v1/queue/swap/not-a-uuid", token, "").Code)

	f.appointments.err = usecase.ErrInvalidTransition
	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/api/v1/appointments/"+id+"/complete", token, "").Code)
}

func TestRouter_QueueFilter(t *testing.T) {
	f := newRouterFixture(t)
	token := f.token(t, entity.RolePatient)
	doctorID := uuid.New()

	rec := f.do(http.MethodGet, "/api/v1/queue?doctor_id="+doctorID.String(), token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, f.queue.filter.DoctorID)
	assert.Equal(t, doctorID, *f.queue.filter.DoctorID)

	rec = f.do(http.MethodGet, "/api/v1/queue?patient_id=nope", token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.queue.filter = entity.QueueFilter{}
	rec = f.do(http.MethodGet, "/api/v1/queue?doctor_id="+doctorID.String()+"&patient_id="+uuid.NewString(), token, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, f.queue.filter.DoctorID)
	assert.Nil(t, f.queue.filter.PatientID)
}
