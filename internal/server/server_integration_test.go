package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"warranty/internal/database"
	"warranty/internal/server"
	"warranty/pkg/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin_pass"
)

type testEnv struct {
	app     *fiber.App
	archive *storage.MemoryArchive
}

// setupApp builds the full app over a private in-memory SQLite database.
func setupApp(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Open(database.Config{
		Driver:       "sqlite",
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpenConns: 1,
		LogLevel:     gormlogger.Silent,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	log := zap.NewNop()
	archive := storage.NewMemoryArchive()
	svc := server.NewServices(db, archive, nil, server.ServiceConfig{
		JWTSecret:       "test_jwt_secret",
		JWTTTL:          time.Hour,
		BulkConcurrency: 2,
	}, log)

	_, err = svc.Auth.EnsureAdmin(t.Context(), adminEmail, adminPassword)
	require.NoError(t, err)

	return &testEnv{app: server.New(svc, server.Options{ServiceName: "warranty-test"}, log), archive: archive}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(jsonBody)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(t, req, token)
}

func (e *testEnv) send(t *testing.T, req *http.Request, token string) (*http.Response, []byte) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/login", map[string]string{"email": email, "password": password}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func errorMessage(t *testing.T, body []byte) string {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	msg, _ := out["error"].(string)
	return msg
}

func multipartRequest(t *testing.T, path string, fields map[string][]string, fileField, filename, contentType string, file []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, values := range fields {
		for _, v := range values {
			require.NoError(t, w.WriteField(key, v))
		}
	}
	if fileField != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, fileField, filename))
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestHealthAndMetrics(t *testing.T) {
	env := setupApp(t)

	resp, body := env.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	resp, body = env.do(t, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "http_requests_total")
}

func TestLogin(t *testing.T) {
	env := setupApp(t)

	resp, body := env.do(t, http.MethodPost, "/login", map[string]string{"email": adminEmail, "password": adminPassword}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "Login successful", out["message"])
	user := out["user"].(map[string]interface{})
	assert.Equal(t, "admin", user["role"])
	assert.NotContains(t, user, "password")

	resp, body = env.do(t, http.MethodPost, "/login", map[string]string{"email": adminEmail, "password": "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid password.", errorMessage(t, body))

	resp, body = env.do(t, http.MethodPost, "/login", map[string]string{"email": "ghost@example.com", "password": "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid email or password.", errorMessage(t, body))

	resp, body = env.do(t, http.MethodPost, "/login", map[string]string{"email": adminEmail}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Email and password are required.", errorMessage(t, body))
}

func TestCatalogManagement(t *testing.T) {
	env := setupApp(t)
	admin := env.login(t, adminEmail, adminPassword)

	resp, _ := env.do(t, http.MethodGet, "/products", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := env.do(t, http.MethodPost, "/products", map[string]string{"product_name": "Server A", "serial_number": "SN1"}, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = env.do(t, http.MethodPost, "/products", map[string]string{"product_name": "Server A", "serial_number": "SN1"}, admin)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "Duplicate Entry", errorMessage(t, body))

	resp, body = env.do(t, http.MethodPost, "/products", map[string]string{"product_name": "Server A"}, admin)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Both product_name and serial_number are required.", errorMessage(t, body))

	// Bulk JSON with a duplicate forces the per-row fallback.
	resp, body = env.do(t, http.MethodPost, "/products/bulk", map[string]interface{}{
		"products": []map[string]string{
			{"product_name": "Server B", "serial_number": "SN2"},
			{"product_name": "Server A", "serial_number": "SN1"},
			{"product_name": "Server C", "serial_number": "SN3"},
		},
	}, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var bulk struct {
		Total        int    `json:"total"`
		SuccessCount int    `json:"success_count"`
		FailureCount int    `json:"failure_count"`
		Mode         string `json:"mode"`
		Failures     []struct {
			Row   int    `json:"row"`
			Error string `json:"error"`
		} `json:"failures"`
	}
	require.NoError(t, json.Unmarshal(body, &bulk))
	assert.Equal(t, 3, bulk.Total)
	assert.Equal(t, 2, bulk.SuccessCount)
	assert.Equal(t, "per_row", bulk.Mode)
	require.Len(t, bulk.Failures, 1)
	assert.Equal(t, 2, bulk.Failures[0].Row)
	assert.Equal(t, "Duplicate Entry", bulk.Failures[0].Error)

	// Bulk CSV goes through as one batch.
	csv := []byte("product_name,serial_number\nServer D,SN4\nServer E,SN5\n")
	req := multipartRequest(t, "/products/bulk", nil, "file", "products.csv", "text/csv", csv)
	resp, body = env.send(t, req, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &bulk))
	assert.Equal(t, "batch", bulk.Mode)
	assert.Equal(t, 2, bulk.SuccessCount)

	resp, body = env.do(t, http.MethodGet, "/products", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var products []map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &products))
	require.Len(t, products, 5)
	assert.Equal(t, "SN1", products[0]["serial_number"])
	assert.Equal(t, "NO", products[0]["registered_status"])

	resp, body = env.do(t, http.MethodDelete, "/products/SN5", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"deleted_product"`)

	resp, body = env.do(t, http.MethodDelete, "/products/SN5", nil, admin)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Product not found", errorMessage(t, body))
}

func TestRegistrationAndClaimLifecycle(t *testing.T) {
	env := setupApp(t)
	admin := env.login(t, adminEmail, adminPassword)

	for _, serial := range []string{"SN1", "SN2"} {
		resp, body := env.do(t, http.MethodPost, "/products", map[string]string{"product_name": "Server " + serial, "serial_number": serial}, admin)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	}

	resp, body := env.do(t, http.MethodGet, "/registered_users", nil, admin)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "No Products registered for warranty", errorMessage(t, body))

	// Register both products with an invoice.
	invoice := []byte("%PDF-1.4 test invoice")
	fields := map[string][]string{
		"invoice_id":    {"INV-100"},
		"name":          {"Jane Doe"},
		"email":         {"jane@example.com"},
		"mobile_number": {"9999999999"},
		"product_name":  {"Server SN1", "Server SN2"},
		"serial_number": {"SN1", "SN2"},
	}
	req := multipartRequest(t, "/product_registration", fields, "invoice_receipt", "jane invoice.pdf", "application/pdf", invoice)
	resp, body = env.send(t, req, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var reg struct {
		Message      string `json:"message"`
		Inserted     int    `json:"inserted"`
		TempPassword string `json:"temp_password"`
	}
	require.NoError(t, json.Unmarshal(body, &reg))
	assert.Equal(t, "Product(s) registered successfully", reg.Message)
	assert.Equal(t, 2, reg.Inserted)
	require.Len(t, reg.TempPassword, 12)
	assert.Equal(t, 1, env.archive.Len())

	// A second registration of the same serial is rejected before any write.
	req = multipartRequest(t, "/product_registration", fields, "invoice_receipt", "again.pdf", "application/pdf", invoice)
	resp, body = env.send(t, req, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, `Warranty claim already submitted for "Server SN1" - "SN1"`, errorMessage(t, body))
	assert.Equal(t, 1, env.archive.Len())

	customer := env.login(t, "jane@example.com", reg.TempPassword)

	resp, body = env.do(t, http.MethodGet, "/user_registrations/jane@example.com", nil, customer)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var mine struct {
		Registrations []map[string]interface{} `json:"registrations"`
	}
	require.NoError(t, json.Unmarshal(body, &mine))
	require.Len(t, mine.Registrations, 2)
	assert.Equal(t, "Jane Doe", mine.Registrations[0]["user_name"])

	resp, _ = env.do(t, http.MethodGet, "/user_registrations/john@example.com", nil, customer)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/registered_users", nil, customer)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Invoice download streams the archived bytes.
	resp, body = env.do(t, http.MethodGet, "/download/invoice/SN1", nil, customer)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, invoice, body)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Server SN1-invoice.pdf"`, resp.Header.Get("Content-Disposition"))

	// File a claim, then a duplicate.
	resp, body = env.do(t, http.MethodPost, "/warranty", map[string]string{"serial_number": "SN1", "customer_remarks": "PSU failure"}, customer)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.Contains(t, string(body), "Warranty record inserted")

	resp, body = env.do(t, http.MethodPost, "/warranty", map[string]string{"email": "other@example.com", "serial_number": "SN1"}, customer)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "Warranty already claimed for this serial number.", errorMessage(t, body))

	resp, body = env.do(t, http.MethodGet, "/get_warranty/SN1", nil, customer)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var claims []map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &claims))
	require.Len(t, claims, 1)
	assert.Equal(t, "Pending", claims[0]["claim_status"])
	assert.Equal(t, "jane@example.com", claims[0]["email"])

	resp, body = env.do(t, http.MethodGet, "/get_warranty/SN2", nil, customer)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Warranty record not found.", errorMessage(t, body))

	// Status changes are admin only, validated and audited.
	resp, body = env.do(t, http.MethodPost, "/warranty_status", map[string]string{"serial_number": "SN1", "claim_status": "Approved"}, customer)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Access denied: Admins only", errorMessage(t, body))

	resp, _ = env.do(t, http.MethodPost, "/warranty_status", map[string]string{"serial_number": "SN1", "claim_status": "Closed"}, admin)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = env.do(t, http.MethodPost, "/warranty_status", map[string]string{"serial_number": "SN9", "claim_status": "Approved"}, admin)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Warranty record not found.", errorMessage(t, body))

	for _, status := range []string{"Approved", "Rejected"} {
		resp, body = env.do(t, http.MethodPost, "/warranty_status", map[string]string{"serial_number": "SN1", "claim_status": status}, admin)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	}

	resp, body = env.do(t, http.MethodGet, "/warranty_status_history/SN1", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history struct {
		History []struct {
			FromStatus string `json:"from_status"`
			ToStatus   string `json:"to_status"`
			ChangedBy  string `json:"changed_by"`
		} `json:"history"`
	}
	require.NoError(t, json.Unmarshal(body, &history))
	require.Len(t, history.History, 2)
	assert.Equal(t, "Pending", history.History[0].FromStatus)
	assert.Equal(t, "Approved", history.History[0].ToStatus)
	assert.Equal(t, "Rejected", history.History[1].ToStatus)
	assert.Equal(t, adminEmail, history.History[1].ChangedBy)

	resp, body = env.do(t, http.MethodGet, "/registered_warranty_claims", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"claim_status":"Rejected"`)

	resp, body = env.do(t, http.MethodGet, "/shipped_products", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"registered_status":"YES"`)

	resp, body = env.do(t, http.MethodGet, "/registered_users", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"invoice_id":"INV-100"`)
}

func TestInvoiceDownloadKeepsProductName(t *testing.T) {
	env := setupApp(t)
	admin := env.login(t, adminEmail, adminPassword)

	resp, body := env.do(t, http.MethodPost, "/products", map[string]string{"product_name": "aiDAPTIV+", "serial_number": "SN001"}, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	invoice := []byte("%PDF-1.4 plus invoice")
	fields := map[string][]string{
		"invoice_id":    {"INV-200"},
		"name":          {"Sam Lee"},
		"email":         {"sam@example.com"},
		"mobile_number": {"8888888888"},
		"product_name":  {"aiDAPTIV+"},
		"serial_number": {"SN001"},
	}
	req := multipartRequest(t, "/product_registration", fields, "invoice_receipt", "receipt.pdf", "application/pdf", invoice)
	resp, body = env.send(t, req, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = env.do(t, http.MethodGet, "/download/invoice/SN001", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, invoice, body)
	assert.Equal(t, `attachment; filename="aiDAPTIV+-invoice.pdf"`, resp.Header.Get("Content-Disposition"))
}

func TestRegistrationValidation(t *testing.T) {
	env := setupApp(t)
	admin := env.login(t, adminEmail, adminPassword)
	resp, _ := env.do(t, http.MethodPost, "/products", map[string]string{"product_name": "Server A", "serial_number": "SN1"}, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := env.do(t, http.MethodPost, "/product_registration", map[string]interface{}{
		"name":          "Jane",
		"email":         "jane@example.com",
		"product_name":  "Server A",
		"serial_number": []string{"SN1", "SN2"},
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Mismatched product and serial number counts.", errorMessage(t, body))

	resp, body = env.do(t, http.MethodPost, "/product_registration", map[string]interface{}{
		"name":          "Jane",
		"email":         "jane@example.com",
		"product_name":  "Server B",
		"serial_number": "SN1",
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, `Product not found: "Server B" - "SN1"`, errorMessage(t, body))

	// JSON registration without an invoice for an existing account skips the
	// temporary password.
	resp, body = env.do(t, http.MethodPost, "/product_registration", map[string]interface{}{
		"name":          "Admin",
		"email":         adminEmail,
		"product_name":  "Server A",
		"serial_number": "SN1",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.NotContains(t, string(body), "temp_password")

	resp, body = env.do(t, http.MethodGet, "/download/invoice/SN1", nil, admin)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Invoice not found", errorMessage(t, body))
}

func TestPasswordManagement(t *testing.T) {
	env := setupApp(t)
	admin := env.login(t, adminEmail, adminPassword)

	resp, body := env.do(t, http.MethodPost, "/update_password", map[string]string{"email": adminEmail, "new_password": "rotated"}, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	env.login(t, adminEmail, "rotated")

	resp, body = env.do(t, http.MethodPost, "/update_temp_password", map[string]string{"email": adminEmail}, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out struct {
		TempPassword string `json:"temp_password"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	env.login(t, adminEmail, out.TempPassword)

	resp, body = env.do(t, http.MethodPost, "/update_temp_password", map[string]string{"email": "ghost@example.com"}, admin)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "User not found.", errorMessage(t, body))

	resp, _ = env.do(t, http.MethodPost, "/update_password", map[string]string{"email": adminEmail, "new_password": "x"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/update_password", map[string]string{"email": adminEmail, "new_password": "x"}, "garbage")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCustomerSurvey(t *testing.T) {
	env := setupApp(t)

	survey := map[string]interface{}{
		"customerName":     "Acme Labs",
		"customerLocation": "Pune",
		"category":         "Datacentres",
		"participants":     "Ravi Kumar – ravi@acme.io",
		"baseModelSize":    "70B",
		"isCustom":         false,
		"onHuggingFace":    true,
		"hfLink":           "https://huggingface.co/acme/model",
		"architecture":     "Mixtral",
		"workloads":        "Both",
		"infraType":        "On-premise",
	}
	resp, body := env.do(t, http.MethodPost, "/customers", survey, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), "Customer inserted successfully")

	survey["participants"] = "Ravi Kumar"
	resp, body = env.do(t, http.MethodPost, "/customers", survey, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.True(t, strings.HasPrefix(errorMessage(t, body), "Please use"))
}
