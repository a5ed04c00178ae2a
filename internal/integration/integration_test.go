package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"qcm-service/internal/app"
	"qcm-service/internal/domain"
	pgstore "qcm-service/internal/infra/postgres"
	pgmigrations "qcm-service/internal/infra/postgres/migrations"
	infraredis "qcm-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestSubmitEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	quizID := seedQuiz(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	quizRepo := infraredis.NewQuizRepository(redisClient, pgstore.NewQuizLoader(pool), 5*time.Minute)
	attempts := pgstore.NewAttemptStore(pool)
	service := app.NewQCMService(quizRepo, attempts)

	quiz, err := quizRepo.GetQuiz(ctx, quizID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if len(quiz.Questions) != 2 {
		t.Fatalf("expected 2 seeded questions, got %d", len(quiz.Questions))
	}
	single, multiple := quiz.Questions[0], quiz.Questions[1]

	// First submission: wrong single answer, partial multiple.
	first, err := service.Submit(ctx, 7, quizID, []domain.AnswerSelection{
		{QuestionID: single.ID, PropositionID: single.Propositions[1].ID},
		{QuestionID: multiple.ID, PropositionID: multiple.Propositions[0].ID},
	})
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if first.TotalPoints != 15 || first.EarnedPoints != 8 {
		t.Fatalf("expected 8/15, got %v/%v", first.EarnedPoints, first.TotalPoints)
	}
	if first.Grade != 10.67 {
		t.Fatalf("expected grade 10.67, got %v", first.Grade)
	}

	// Resubmission: everything correct; the prior attempt must be replaced.
	second, err := service.Submit(ctx, 7, quizID, []domain.AnswerSelection{
		{QuestionID: single.ID, PropositionID: single.Propositions[0].ID},
		{QuestionID: multiple.ID, PropositionID: multiple.Propositions[0].ID},
		{QuestionID: multiple.ID, PropositionID: multiple.Propositions[2].ID},
	})
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if second.Grade != 20 {
		t.Fatalf("expected grade 20, got %v", second.Grade)
	}

	var count int
	if err := pool.QueryRow(ctx,
		`SELECT count(*) FROM attempt WHERE qcm_id=$1 AND user_id=$2`, quizID, int64(7),
	).Scan(&count); err != nil {
		t.Fatalf("count attempts: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one attempt row after resubmit, got %d", count)
	}
	if _, err := attempts.GetAttempt(ctx, quizID, first.AttemptID); !errors.Is(err, domain.ErrAttemptNotFound) {
		t.Fatalf("expected first attempt deleted, got %v", err)
	}

	// Correction reads back the stored projection.
	correction, err := service.Correction(ctx, 7, quizID, second.AttemptID)
	if err != nil {
		t.Fatalf("correction: %v", err)
	}
	if correction.Attempt.Grade != 20 {
		t.Fatalf("expected stored grade 20, got %v", correction.Attempt.Grade)
	}
	if len(correction.Questions) != 2 {
		t.Fatalf("expected 2 correction questions, got %d", len(correction.Questions))
	}
	if got := correction.Questions[1].UserAnswers; len(got) != 2 {
		t.Fatalf("expected 2 selected propositions stored, got %v", got)
	}

	summaries, err := service.ListAttempts(ctx, 7)
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(summaries) != 1 || summaries[0].QuizName != "Go fundamentals" {
		t.Fatalf("expected one summary for Go fundamentals, got %+v", summaries)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "qcm", "POSTGRES_PASSWORD": "qcmpass", "POSTGRES_DB": "qcmdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://qcm:qcmpass@%s:%s/qcmdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

// seedQuiz migrates the schema and inserts one quiz: a single-choice question
// worth 5 and a multiple-choice question worth 10, both with a penalty of 2.
func seedQuiz(t *testing.T, ctx context.Context, dsn string) int64 {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	var quizID int64
	if err := db.QueryRowContext(ctx,
		`INSERT INTO qcm (name, difficulty) VALUES ('Go fundamentals', 'medium') RETURNING id`,
	).Scan(&quizID); err != nil {
		t.Fatalf("insert qcm: %v", err)
	}

	var singleID, multiID int64
	if err := db.QueryRowContext(ctx,
		`INSERT INTO question (qcm_id, heading, points, negative_points, type)
		 VALUES (?, 'Zero value of a pointer?', 5, 2, 'single') RETURNING id`, quizID,
	).Scan(&singleID); err != nil {
		t.Fatalf("insert question: %v", err)
	}
	if err := db.QueryRowContext(ctx,
		`INSERT INTO question (qcm_id, heading, points, negative_points, type)
		 VALUES (?, 'Which types are comparable?', 10, 2, 'multiple') RETURNING id`, quizID,
	).Scan(&multiID); err != nil {
		t.Fatalf("insert question: %v", err)
	}

	seedPropositions(t, ctx, db, singleID, []propSeed{
		{"nil", true},
		{"0", false},
	})
	seedPropositions(t, ctx, db, multiID, []propSeed{
		{"int", true},
		{"map", false},
		{"string", true},
	})
	return quizID
}

type propSeed struct {
	text    string
	correct bool
}

func seedPropositions(t *testing.T, ctx context.Context, db *bun.DB, questionID int64, props []propSeed) {
	t.Helper()
	for _, p := range props {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO proposition (question_id, text, validity) VALUES (?, ?, ?)`,
			questionID, p.text, p.correct); err != nil {
			t.Fatalf("insert proposition: %v", err)
		}
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
