//go:build e2e

// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dd-qualification/internal/common/camunda"
	"dd-qualification/internal/common/config"
	"dd-qualification/internal/common/database"
	"dd-qualification/internal/common/logger"
	pgstore "dd-qualification/internal/evidence/postgres"
	"dd-qualification/internal/findings"
	"dd-qualification/internal/qualification"
	"dd-qualification/internal/snapshot"

	computequalificationscore "dd-qualification/internal/workers/qualification/compute-qualification-score"
	getqualificationsnapshot "dd-qualification/internal/workers/qualification/get-qualification-snapshot"
	refreshqualification "dd-qualification/internal/workers/qualification/refresh-qualification"
	validatequalification "dd-qualification/internal/workers/qualification/validate-qualification"
)

// services holds the live connections. Redis and Elasticsearch are nil when
// unreachable; their steps are skipped.
type services struct {
	cfg    *config.Config
	pg     *database.PostgresClient
	store  *pgstore.Store
	engine *qualification.Engine
	cache  *snapshot.Cache
	index  *findings.Index
}

func TestFullE2E(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg, err := config.Load()
	require.NoError(t, err)

	// E2E runs against the docker-compose stack on localhost.
	cfg.Database.Postgres.Host = envOr("E2E_POSTGRES_HOST", "localhost")
	cfg.Database.Redis.Address = envOr("E2E_REDIS_ADDRESS", "localhost:6379")
	cfg.Database.Elasticsearch.URL = envOr("E2E_ELASTICSEARCH_URL", "http://localhost:9200")
	cfg.Database.Elasticsearch.Addresses = nil

	log := logger.NewTestLogger(t)
	svc := connect(ctx, t, cfg, log)
	defer svc.pg.Close()

	require.NoError(t, svc.store.EnsureSchema(ctx), "❌ evidence schema")

	subjectID := "e2e-" + uuid.NewString()
	seedSubject(ctx, t, svc.pg, subjectID)
	t.Logf("🌱 Seeded subject %s", subjectID)

	t.Run("compute-qualification-score", func(t *testing.T) {
		h, err := computequalificationscore.NewHandler(computequalificationscore.HandlerOptions{
			AppConfig: cfg, Scorer: svc.engine, Logger: log,
		})
		require.NoError(t, err)

		out, err := h.Execute(ctx, &computequalificationscore.Input{SubjectID: subjectID})
		require.NoError(t, err)
		assert.Greater(t, out.OverallScore, 0)
		assert.NotEmpty(t, out.QualificationLevel)
	})

	t.Run("validate-qualification", func(t *testing.T) {
		h, err := validatequalification.NewHandler(validatequalification.HandlerOptions{
			AppConfig: cfg, Checker: svc.engine, Logger: log,
		})
		require.NoError(t, err)

		out, err := h.Execute(ctx, &validatequalification.Input{SubjectID: subjectID})
		require.NoError(t, err)
		assert.False(t, out.IsValid)
		assert.Equal(t, 59, out.ValidationScore)
		require.NotEmpty(t, out.RedFlags)
	})

	var refreshed *refreshqualification.Output
	t.Run("refresh-qualification", func(t *testing.T) {
		opts := refreshqualification.HandlerOptions{AppConfig: cfg, Refresher: svc.engine, Logger: log}
		if svc.cache != nil {
			opts.Snapshots = svc.cache
		}
		if svc.index != nil {
			opts.Findings = svc.index
		}
		h, err := refreshqualification.NewHandler(opts)
		require.NoError(t, err)

		notify := false
		refreshed, err = h.Execute(ctx, &refreshqualification.Input{SubjectID: subjectID, Notify: &notify})
		require.NoError(t, err)
		assert.Len(t, refreshed.UpdatedAssessments, 5)
		assert.Equal(t, svc.cache != nil, refreshed.SnapshotCached)
		assert.Equal(t, svc.index != nil, refreshed.FindingsIndexed)

		var score float64
		var redFlags string
		require.NoError(t, svc.pg.DB.QueryRowContext(ctx,
			`SELECT overall_qualification_score, red_flags::text FROM qualification_assessments WHERE id = $1`,
			subjectID+"-skills").Scan(&score, &redFlags))
		assert.InDelta(t, float64(refreshed.ScoreVector.Overall), score, 0.01)
		assert.Contains(t, redFlags, "rehire")

		again, err := h.Execute(ctx, &refreshqualification.Input{SubjectID: subjectID, Notify: &notify})
		require.NoError(t, err)
		// The written payload depends only on evidence, never on the
		// confidence_level the previous run stored.
		assert.Equal(t, refreshed.ScoreVector.Overall, again.ScoreVector.Overall)
		assert.Equal(t, refreshed.Validation, again.Validation)
	})

	t.Run("get-qualification-snapshot", func(t *testing.T) {
		if svc.cache == nil {
			t.Skip("⚠️ Redis not reachable")
		}
		require.NotNil(t, refreshed)

		h, err := getqualificationsnapshot.NewHandler(getqualificationsnapshot.HandlerOptions{
			AppConfig: cfg, Evaluator: svc.engine, Cache: svc.cache, Logger: log,
		})
		require.NoError(t, err)

		out, err := h.Execute(ctx, &getqualificationsnapshot.Input{SubjectID: subjectID})
		require.NoError(t, err)
		assert.True(t, out.FromCache)
		assert.Equal(t, refreshed.RunID, out.RunID)
		require.NoError(t, svc.cache.Invalidate(ctx, subjectID))
	})

	t.Run("findings-search", func(t *testing.T) {
		if svc.index == nil {
			t.Skip("⚠️ Elasticsearch not reachable")
		}
		// Indexing is near real time.
		require.Eventually(t, func() bool {
			docs, err := svc.index.Search(ctx, findings.Query{Code: string(qualification.CodeNegativeRehire), InvalidOnly: true})
			if err != nil {
				return false
			}
			for _, d := range docs {
				if d.SubjectID == subjectID {
					return true
				}
			}
			return false
		}, 10*time.Second, 500*time.Millisecond)
	})

	t.Run("zeebe-topology", func(t *testing.T) {
		zb, err := camunda.NewClientWithConfig(ctx, &camunda.ClientConfig{
			GatewayAddress:         envOr("E2E_ZEEBE_ADDRESS", "localhost:26500"),
			UsePlaintextConnection: true,
		})
		if err != nil {
			t.Skipf("⚠️ Zeebe not reachable: %v", err)
		}
		defer zb.Close()
		assert.NoError(t, zb.HealthCheck(ctx), "❌ Zeebe topology request failed")
	})

	t.Log("✅ ALL TESTS PASSED")
}

func connect(ctx context.Context, t *testing.T, cfg *config.Config, log logger.Logger) *services {
	t.Log("🔍 Checking service connectivity...")
	svc := &services{cfg: cfg}

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err, "❌ PostgreSQL connection failed")
	require.NoError(t, pg.Ping(ctx), "❌ PostgreSQL ping failed")
	svc.pg = pg
	svc.store = pgstore.NewStore(pg.DB, log)
	svc.engine = qualification.NewEngine(svc.store, log)
	t.Log("✅ PostgreSQL connected")

	rc := database.NewRedis(cfg.Database.Redis)
	if err := rc.Ping(ctx); err != nil {
		t.Logf("⚠️ Redis unavailable: %v", err)
	} else {
		t.Cleanup(func() { _ = rc.Close() })
		svc.cache = snapshot.NewCache(rc.Client, "e2e:qualification:", time.Minute, log)
		t.Log("✅ Redis connected")
	}

	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	if err == nil {
		err = es.Ping(ctx)
	}
	if err != nil {
		t.Logf("⚠️ Elasticsearch unavailable: %v", err)
	} else {
		svc.index = findings.NewIndex(es.Client, "e2e-qualification-findings", log)
		t.Log("✅ Elasticsearch connected")
	}
	return svc
}

// seedSubject inserts one assessment per evidence family. The evidence is
// built to fail validation: four red flags (two weak skill evidences, one
// reference flag, one would-not-rehire) and a validation score of 59.
func seedSubject(ctx context.Context, t *testing.T, pg *database.PostgresClient, subjectID string) {
	id := func(kind string) string { return subjectID + "-" + kind }

	stmts := []string{}
	for _, kind := range []string{"skills", "references", "performance", "competency", "cultural_fit"} {
		stmts = append(stmts, fmt.Sprintf(
			`INSERT INTO qualification_assessments (id, subject_id, assessment_type, verification_status, confidence_level)
			 VALUES ('%s', '%s', '%s', 'completed', 0.8)`,
			id(kind), subjectID, kind))
	}
	stmts = append(stmts,
		fmt.Sprintf(`INSERT INTO skill_validations (id, assessment_id, skill_name, skill_category, claimed_proficiency, validated_proficiency, evidence_quality, industry_relevance)
			VALUES ('%[1]s-s1', '%[1]s', 'Financial Modeling', 'financial', 90, 60, 55, 85),
			       ('%[1]s-s2', '%[1]s', 'Team Building', 'leadership', 80, 75, 50, 80)`, id("skills")),
		fmt.Sprintf(`INSERT INTO reference_checks (id, assessment_id, reference_name, response_status, overall_rating, integrity_rating, performance_rating, would_rehire, relationship_to_candidate, red_flags)
			VALUES ('%[1]s-r1', '%[1]s', 'Former CFO', 'completed', 60, 70, 65, false, 'direct_manager', '["missed deadlines"]')`, id("references")),
		fmt.Sprintf(`INSERT INTO performance_validations (id, assessment_id, company, role, validation_confidence, stakeholder_feedback, peer_review, subordinate_feedback, client_satisfaction, claimed_achievements, validated_achievements)
			VALUES ('%[1]s-p1', '%[1]s', 'Acme', 'COO', 0.8, 75, 80, 70, 80, '["grew revenue","opened plant"]', '["grew revenue"]')`, id("performance")),
		fmt.Sprintf(`INSERT INTO competency_validations (id, assessment_id, competency_name, competency_category, required_level, demonstrated_level, assessor_confidence, future_potential_score)
			VALUES ('%[1]s-c1', '%[1]s', 'Strategic Thinking', 'Strategic', 80, 70, 0.8, 70)`, id("competency")),
		fmt.Sprintf(`INSERT INTO cultural_fit_assessments (id, assessment_id, values_alignment, work_style_fit, communication_fit, leadership_fit, team_integration_fit)
			VALUES ('%[1]s-f1', '%[1]s', 80, 70, 80, 70, 80)`, id("cultural_fit")),
	)

	for _, stmt := range stmts {
		_, err := pg.DB.ExecContext(ctx, stmt)
		require.NoError(t, err, "❌ seed: %s", stmt)
	}

	t.Cleanup(func() {
		cleanup := context.Background()
		for _, table := range []string{"skill_validations", "reference_checks", "performance_validations", "competency_validations", "cultural_fit_assessments"} {
			_, _ = pg.DB.ExecContext(cleanup,
				`DELETE FROM `+table+` WHERE assessment_id IN (SELECT id FROM qualification_assessments WHERE subject_id = $1)`, subjectID)
		}
		_, _ = pg.DB.ExecContext(cleanup, `DELETE FROM qualification_assessments WHERE subject_id = $1`, subjectID)
	})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
