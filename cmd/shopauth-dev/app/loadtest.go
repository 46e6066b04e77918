package app

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	goShopAuth "github.com/MrEthical07/goShopAuth"
	"github.com/MrEthical07/goShopAuth/jwt"
	"github.com/MrEthical07/goShopAuth/session"
)

const (
	loadTestAPIKey    = "loadtest-api-key"
	loadTestAPISecret = "loadtest-api-secret"
	loadTestScope     = "read_products"
)

type loadTestOptions struct {
	shops       int
	concurrency int
	ops         int
	redisAddr   string
	prefix      string
}

func newLoadTestCmd() *cobra.Command {
	opts := loadTestOptions{}
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Load test the Redis session store and the admin fast path",
		Long: `Seed offline sessions into Redis, then measure concurrent store loads and
AuthenticateAdmin calls that are served from the store without platform calls.
Uses --redis-addr, then REDIS_ADDR, then an in-process miniredis.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.shops <= 0 || opts.concurrency <= 0 || opts.ops <= 0 {
				return fmt.Errorf("shops, concurrency, and ops must be > 0")
			}
			if opts.redisAddr == "" {
				opts.redisAddr = os.Getenv("REDIS_ADDR")
			}
			return runLoadTest(cmd.Context(), newLogger(cmd), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().IntVar(&opts.shops, "shops", 10000, "Number of shops to seed")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 256, "Number of concurrent workers")
	cmd.Flags().IntVar(&opts.ops, "ops", 200000, "Operations per phase")
	cmd.Flags().StringVar(&opts.redisAddr, "redis-addr", "", "Redis address")
	cmd.Flags().StringVar(&opts.prefix, "prefix", "shopauth-loadtest", "Session key prefix")
	return cmd
}

func runLoadTest(ctx context.Context, logger zerolog.Logger, out io.Writer, opts loadTestOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	client, cleanup, err := openRedis(logger, opts.redisAddr)
	if err != nil {
		return err
	}
	defer cleanup()

	store := session.NewRedisStore(client, opts.prefix)
	shops := make([]string, opts.shops)

	logger.Info().Int("shops", opts.shops).Msg("seeding sessions")
	startSeed := time.Now()
	for i := range shops {
		shops[i] = fmt.Sprintf("loadtest-%d.myshopify.com", i)
		sess := &session.Session{
			ID:          session.OfflineID(shops[i]),
			Shop:        shops[i],
			Scope:       loadTestScope,
			AccessToken: fmt.Sprintf("shpat_loadtest_%d", i),
		}
		if err := store.Store(ctx, sess); err != nil {
			return fmt.Errorf("seed session: %w", err)
		}
	}
	logger.Info().Dur("took", time.Since(startSeed).Round(time.Millisecond)).Msg("seeded")

	cfg := goShopAuth.DefaultConfig()
	cfg.App.APIKey = loadTestAPIKey
	cfg.App.APISecret = loadTestAPISecret
	cfg.App.AppURL = "https://loadtest.example.com"
	cfg.Auth.Scopes = []string{loadTestScope}

	engine, err := goShopAuth.New().
		WithConfig(cfg).
		WithSessionStore(store).
		WithLogger(logger.Level(zerolog.WarnLevel)).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	tokens := make([]string, len(shops))
	for i, shop := range shops {
		// Tokens outlive the run so the admin phase never hits expiry.
		tokens[i], err = jwt.Sign([]byte(loadTestAPISecret), jwt.NewClaims(loadTestAPIKey, shop, 0, time.Hour, time.Now()))
		if err != nil {
			return fmt.Errorf("mint session token: %w", err)
		}
	}

	loadStats := runPhase(opts, func(idx int) error {
		sess, err := store.Load(ctx, session.OfflineID(shops[idx%len(shops)]))
		if err == nil && sess == nil {
			err = fmt.Errorf("session missing")
		}
		return err
	})
	adminStats := runPhase(opts, func(idx int) error {
		r := httptest.NewRequest(http.MethodGet, "/api/loadtest", nil).WithContext(ctx)
		r.Header.Set("Authorization", "Bearer "+tokens[idx%len(tokens)])
		_, err := engine.AuthenticateAdmin(r)
		return err
	})

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "store_load", loadStats)
	printStats(out, "authenticate_admin", adminStats)
	return nil
}

func openRedis(logger zerolog.Logger, addr string) (redis.UniversalClient, func(), error) {
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		logger.Info().Str("addr", addr).Msg("using redis")
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	logger.Info().Str("addr", mr.Addr()).Msg("using miniredis")
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

// runPhase spreads opts.ops calls of op over opts.concurrency workers, each
// picking a random shop index.
func runPhase(opts loadTestOptions, op func(idx int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    atomic.Int64
		failures  atomic.Int64
		latencies = make([]time.Duration, 0, opts.ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < opts.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]time.Duration, 0, opts.ops/opts.concurrency+1)
			for cursor.Add(1) <= int64(opts.ops) {
				t0 := time.Now()
				if err := op(rand.IntN(opts.shops)); err != nil {
					failures.Add(1)
				}
				local = append(local, time.Since(t0))
			}
			mu.Lock()
			latencies = append(latencies, local...)
			mu.Unlock()
		}()
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures.Load())
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total, failures: failures}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(sorted []time.Duration, p int) time.Duration {
	switch {
	case len(sorted) == 0:
		return 0
	case p <= 0:
		return sorted[0]
	case p >= 100:
		return sorted[len(sorted)-1]
	}
	return sorted[(len(sorted)-1)*p/100]
}

func printStats(out io.Writer, name string, s phaseStats) {
	fmt.Fprintf(out, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
