// Command wayfarer-demo runs the sync core against the in-process reference
// server: it seeds a small world, opens a session, and prints what the
// stores see as pushes and mutations flow through.
package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wayfarer-app/wayfarer-go/internal/devserver"
	"github.com/wayfarer-app/wayfarer-go/internal/models"
	"github.com/wayfarer-app/wayfarer-go/internal/session"
	"github.com/wayfarer-app/wayfarer-go/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Start the reference collaborator
	srv := devserver.New("wayfarer-demo-secret")
	seed(srv)
	go func() {
		if err := srv.Start(":8080"); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Dev server stopped: %v", err)
		}
	}()

	// Metrics endpoint
	registry := prometheus.NewRegistry()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		if err := http.ListenAndServe(":"+cfg.MetricsPort, mux); err != nil {
			log.Printf("Metrics server stopped: %v", err)
		}
	}()
	time.Sleep(200 * time.Millisecond)

	token := cfg.Token
	if token == "" {
		token, err = srv.IssueToken("viewer")
		if err != nil {
			log.Fatalf("Failed to issue demo token: %v", err)
		}
	}

	// Open the session
	sess := session.New(session.Config{
		ServerURL:    cfg.ServerURL,
		PushURL:      cfg.PushURL,
		Token:        token,
		PollInterval: cfg.PollInterval,
		Registry:     registry,
	})
	sess.OnConnectionLost(func(reason string) {
		log.Printf("Connection lost for good: %s", reason)
	})

	ctx := context.Background()
	if err := sess.Start(ctx); err != nil {
		log.Fatalf("Failed to start session: %v", err)
	}
	defer sess.Close()

	if err := sess.LoadFeed(ctx, 1, 10); err != nil {
		log.Fatalf("Failed to load feed: %v", err)
	}
	log.Printf("Feed: %d posts, %d unread notifications",
		len(sess.Cache.Timeline("home")), sess.Store.UnreadCount())

	// A push arrives
	srv.CreateNotification("viewer", models.Notification{
		Kind:  models.KindLike,
		Actor: models.UserCompact{ID: "amelia", Name: "Amelia", Username: "amelia.tours"},
	})
	time.Sleep(200 * time.Millisecond)
	for _, n := range sess.Store.Notifications() {
		log.Printf("Notification: %s (read=%v)", n.DisplayText(), n.IsRead)
	}

	// Block a feed author and show the aggregate shrink without eviction
	if err := sess.Ledger.Block(ctx, "ben"); err != nil {
		log.Fatalf("Failed to block: %v", err)
	}
	log.Printf("Feed after block: %d posts", len(sess.Cache.Timeline("home")))
	if err := sess.Ledger.Unblock(ctx, "ben"); err != nil {
		log.Fatalf("Failed to unblock: %v", err)
	}
	log.Printf("Feed after unblock: %d posts", len(sess.Cache.Timeline("home")))
}

// seed fills the reference server with a viewer, two authors, and a few
// posts and notifications.
func seed(srv *devserver.Server) {
	srv.Users.Put(models.Profile{UserCompact: models.UserCompact{ID: "viewer", Name: "Val", Username: "val.travels"}})
	srv.Users.Put(models.Profile{UserCompact: models.UserCompact{ID: "amelia", Name: "Amelia", Username: "amelia.tours"}})
	srv.Users.Put(models.Profile{UserCompact: models.UserCompact{ID: "ben", Name: "Ben", Username: "ben.abroad"}})

	now := time.Now().UTC()
	srv.Posts.Put(models.Post{ID: "p1", AuthorID: "amelia", Content: "Sunrise over Cappadocia", CreatedAt: now.Add(-3 * time.Hour)})
	srv.Posts.Put(models.Post{ID: "p2", AuthorID: "ben", Content: "Night train to Lisbon", CreatedAt: now.Add(-2 * time.Hour)})
	srv.Posts.Put(models.Post{ID: "p3", AuthorID: "amelia", Content: "Market day in Oaxaca", CreatedAt: now.Add(-time.Hour)})

	srv.CreateNotification("viewer", models.Notification{
		Kind:      models.KindFollow,
		Actor:     models.UserCompact{ID: "ben", Name: "Ben", Username: "ben.abroad"},
		CreatedAt: now.Add(-30 * time.Minute),
	})
}
