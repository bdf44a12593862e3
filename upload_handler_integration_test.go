package main

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hooper-lee/excant-backend/config"
	"github.com/hooper-lee/excant-backend/middlewares"
	"github.com/hooper-lee/excant-backend/models"
)

// Upload failures from the extraction service must come back as a generic
// 500, leave a FAILED document row behind, and never charge quota.
func TestUploadHandlerExtractionFailure(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startTestRedis(t)
	t.Cleanup(func() { _ = removeTestContainer(redisName) })

	mysqlName, mysqlPort := startTestMySQL(t)
	t.Cleanup(func() { _ = removeTestContainer(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "excant_test")
	t.Setenv("TOKEN_HOUR_LIFESPAN", "1")
	t.Setenv("STORAGE_PROVIDER", "none")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	user, err := models.Signup(ctx, &models.NewUser{
		Email:    "uploader@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	info, err := models.Login(ctx, "uploader@example.com", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	extraction := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream model failure", http.StatusInternalServerError)
	}))
	t.Cleanup(extraction.Close)
	t.Setenv("EXTRACTION_API_URL", extraction.URL)
	t.Setenv("EXTRACTION_API_KEY", "test-key")

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middlewares.SessionMiddleware())
	r.POST("/documents/upload", uploadAndExtractHandler())

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "scan.png")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	// PNG signature is enough for content-type sniffing
	if _, err := part.Write([]byte("\x89PNG\r\n\x1a\n")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/documents/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+info.Token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "extraction failed") {
		t.Fatalf("body = %s, want extraction failed", w.Body.String())
	}

	db := config.GetDB()
	var doc models.Document
	if err := db.Where("user_id = ?", user.ID).Take(&doc).Error; err != nil {
		t.Fatalf("failed document row missing: %v", err)
	}
	if doc.Status != models.DocumentStatusFailed {
		t.Fatalf("document status = %s, want FAILED", doc.Status)
	}
	if doc.ErrorMessage == "" {
		t.Fatalf("failed document has no error message")
	}

	reloaded, err := models.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if reloaded.PagesUsed != 0 {
		t.Fatalf("pages used = %d after failed extraction, want 0", reloaded.PagesUsed)
	}
}

func startTestRedis(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("excant-test-redis-%d", time.Now().UnixNano())
	out, err := runDocker(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := testContainerPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := runDocker("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startTestMySQL(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("excant-test-mysql-%d", time.Now().UnixNano())
	out, err := runDocker(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=excant_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := testContainerPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := runDocker("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func testContainerPort(container, portProto string) (string, error) {
	out, err := runDocker("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func removeTestContainer(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := runDocker("rm", "-f", container)
	return err
}

func runDocker(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
