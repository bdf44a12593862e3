package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/hooper-lee/excant-backend/config"
	"github.com/hooper-lee/excant-backend/models"
	"github.com/hooper-lee/excant-backend/utils"
)

// Covers the referral flow end to end: invitee starts with the boosted
// limit, the inviter earns bonus pages, an unknown code creates no user,
// and the quota charge refuses to cross the limit.
func TestSignupInviteAndQuotaCharge(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "excant_test")
	t.Setenv("TOKEN_HOUR_LIFESPAN", "1")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	inviter, err := models.Signup(ctx, &models.NewUser{
		Email:    "inviter@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Signup inviter: %v", err)
	}
	if inviter.PagesLimit != models.DefaultPagesLimit {
		t.Fatalf("inviter pages limit = %d, want %d", inviter.PagesLimit, models.DefaultPagesLimit)
	}
	if len(inviter.InviteCode) != 6 {
		t.Fatalf("inviter invite code = %q, want 6 chars", inviter.InviteCode)
	}

	invitee, err := models.Signup(ctx, &models.NewUser{
		Email:      "invitee@example.com",
		Password:   "password123",
		InviteCode: inviter.InviteCode,
	})
	if err != nil {
		t.Fatalf("Signup invitee: %v", err)
	}
	if invitee.PagesLimit != models.InvitedPagesLimit {
		t.Fatalf("invitee pages limit = %d, want %d", invitee.PagesLimit, models.InvitedPagesLimit)
	}
	if invitee.InvitedBy == nil || *invitee.InvitedBy != inviter.ID {
		t.Fatalf("invitee invited_by = %v, want %d", invitee.InvitedBy, inviter.ID)
	}

	reloaded, err := models.GetUserByID(ctx, inviter.ID)
	if err != nil {
		t.Fatalf("reload inviter: %v", err)
	}
	if reloaded.PagesLimit != models.DefaultPagesLimit+models.InviteRewardPages {
		t.Fatalf("inviter pages limit after referral = %d, want %d", reloaded.PagesLimit, models.DefaultPagesLimit+models.InviteRewardPages)
	}
	if reloaded.InvitePages != models.InviteRewardPages || reloaded.InviteCount != 1 {
		t.Fatalf("inviter rewards = (%d pages, %d count), want (%d, 1)", reloaded.InvitePages, reloaded.InviteCount, models.InviteRewardPages)
	}

	// Unknown code: no account may be created.
	_, err = models.Signup(ctx, &models.NewUser{
		Email:      "stranger@example.com",
		Password:   "password123",
		InviteCode: "ZZZZZZ",
	})
	if err != models.ErrInvalidInviteCode {
		t.Fatalf("Signup with bogus code err = %v, want ErrInvalidInviteCode", err)
	}
	db := config.GetDB()
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", "stranger@example.com").Count(&count).Error; err != nil {
		t.Fatalf("count stranger rows: %v", err)
	}
	if count != 0 {
		t.Fatalf("rejected signup left %d user rows", count)
	}

	// A corrupt stored password hash rejects the login instead of passing it.
	corrupt := &models.User{
		Email:      "corrupt@example.com",
		Password:   "not-a-bcrypt-hash",
		InviteCode: "CRPT01",
		IsActive:   utils.NewTrue(),
	}
	if err := db.Create(corrupt).Error; err != nil {
		t.Fatalf("create corrupt user: %v", err)
	}
	if _, err := models.Login(ctx, "corrupt@example.com", "password123"); err == nil {
		t.Fatalf("login succeeded against a malformed password hash")
	}

	// Quota charge: a document may land exactly on the limit, never past it.
	doc := &models.Document{
		UserId:       invitee.ID,
		OriginalName: "big.pdf",
		PageCount:    models.InvitedPagesLimit,
		Status:       models.DocumentStatusCompleted,
	}
	if _, err := models.CreateDocument(ctx, doc); err != nil {
		t.Fatalf("CreateDocument at limit: %v", err)
	}
	var eventRows int64
	if err := db.Model(&models.EventRecord{}).
		Where("reference_type = ? AND reference_id = ?", models.EventReferenceDocument, doc.ID).
		Count(&eventRows).Error; err != nil {
		t.Fatalf("count outbox rows: %v", err)
	}
	if eventRows != 1 {
		t.Fatalf("outbox rows for document = %d, want 1", eventRows)
	}

	over := &models.Document{
		UserId:       invitee.ID,
		OriginalName: "one-more.pdf",
		PageCount:    1,
		Status:       models.DocumentStatusCompleted,
	}
	if _, err := models.CreateDocument(ctx, over); err != models.ErrQuotaExceeded {
		t.Fatalf("CreateDocument over limit err = %v, want ErrQuotaExceeded", err)
	}

	// Login issues a redis-backed token.
	info, err := models.Login(ctx, "invitee@example.com", "password123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	email, exists, err := config.GetRedisValue("Token:" + info.Token)
	if err != nil || !exists || email != "invitee@example.com" {
		t.Fatalf("token lookup = (%q, %v, %v), want invitee email", email, exists, err)
	}

	// Admin updates require the admin flag in the request context.
	if _, err := models.AdminUpdateUser(ctx, invitee.ID, &models.AdminUserUpdate{IsActive: utils.NewFalse()}); err == nil {
		t.Fatalf("AdminUpdateUser without admin context succeeded")
	}

	// Deactivation kills the account and every open session.
	adminCtx := utils.SetIsAdminInContext(ctx, true)
	updated, err := models.AdminUpdateUser(adminCtx, invitee.ID, &models.AdminUserUpdate{IsActive: utils.NewFalse()})
	if err != nil {
		t.Fatalf("AdminUpdateUser deactivate: %v", err)
	}
	if updated.IsActive == nil || *updated.IsActive {
		t.Fatalf("user still active after deactivation")
	}
	if _, err := models.Login(ctx, "invitee@example.com", "password123"); err == nil {
		t.Fatalf("deactivated user can still log in")
	}
	if _, exists, _ := config.GetRedisValue("Token:" + info.Token); exists {
		t.Fatalf("session token survived deactivation")
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("excant-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("excant-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
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
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
