package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/glovecore/internal/calibration"
	"github.com/ayusman/glovecore/internal/config"
	"github.com/ayusman/glovecore/internal/device"
	"github.com/ayusman/glovecore/internal/glove"
	"github.com/ayusman/glovecore/internal/profile"
	"github.com/ayusman/glovecore/internal/server"
	"github.com/ayusman/glovecore/internal/session"
	"github.com/ayusman/glovecore/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to glovecore.yaml")
	addr := flag.String("addr", "", "listen address, overrides server.addr")
	flag.Parse()

	fmt.Println("Glovecore - Haptic Glove Hand Tracking")

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	dev, err := cfg.Glove.Build()
	if err != nil {
		log.Fatalf("Invalid glove: %v", err)
	}

	// Initialize the store
	dbPath := cfg.Store.Path
	if dbPath == "" {
		dataDir, err := dataDir()
		if err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
		dbPath = filepath.Join(dataDir, "glovecore.db")
	}
	st, err := store.New(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	sess, err := session.New(dev, latestProfile(st, dev), cfg.Session)
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	sess.OnProfile = func(p *profile.HandProfile, points []calibration.DataPoint) {
		saveCalibration(st, p, points)
	}
	loadTemplates(st, sess)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	if cfg.Glove.Source == config.SourceSimulated {
		src, err := glove.NewSimulated(dev, cfg.Glove.Simulated)
		if err != nil {
			log.Fatalf("Failed to start simulated glove: %v", err)
		}
		defer src.Close()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sess.Run(ctx, src); err != nil {
				log.Printf("Glove stopped: %v", err)
			}
			log.Print("glove routine terminated")
		}()
	}

	// Find web directory
	webDir := cfg.Server.StaticDir
	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	httpServer := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: server.New(server.Config{
			StaticDir: webDir,
			Store:     st,
			Session:   sess,
		}),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown: %v", err)
		}
	}()

	fmt.Printf("Starting server on %s for %s\n", cfg.Server.Addr, device.Name(dev))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
	stop()
	wg.Wait()
}

// latestProfile returns the most recently saved profile for the glove's hand,
// or nil to start from the device defaults.
func latestProfile(st *store.Store, dev device.Device) *profile.HandProfile {
	p, err := st.Profiles().Latest(dev.Side())
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("Failed to load profile: %v", err)
		}
		return nil
	}
	if p.Device != dev.Kind() {
		log.Printf("Latest %s profile %q is for %s, using defaults for %s", dev.Side(), p.Name, p.Device, device.Name(dev))
		return nil
	}
	log.Printf("Loaded profile %q (%s)", p.Name, p.ID)
	return p.Data
}

// saveCalibration stores a calibrated profile together with the samples it
// was compiled from.
func saveCalibration(st *store.Store, p *profile.HandProfile, points []calibration.DataPoint) {
	rec := &store.Profile{
		ID:   uuid.New().String(),
		Name: fmt.Sprintf("calibration %s", time.Now().Format("2006-01-02 15:04:05")),
		Data: p,
	}
	if err := st.Profiles().Create(rec); err != nil {
		log.Printf("Failed to save profile: %v", err)
		return
	}
	if err := st.Samples().Create(rec.ID, uuid.New().String(), points); err != nil {
		log.Printf("Failed to save calibration samples: %v", err)
		return
	}
	log.Printf("Saved profile %q with %d samples", rec.Name, len(points))
}

func loadTemplates(st *store.Store, sess *session.Session) {
	templates, err := st.Templates().ListBySide(sess.Device().Side())
	if err != nil {
		log.Printf("Failed to load pose templates: %v", err)
		return
	}
	for _, t := range templates {
		sess.AddTemplate(t.Matcher())
	}
	if len(templates) > 0 {
		log.Printf("Loaded %d pose templates", len(templates))
	}
}

func dataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(homeDir, ".glovecore")
	return dir, os.MkdirAll(dir, 0755)
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.glovecore/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if absPath, err := filepath.Abs(p); err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	homeWebDir := filepath.Join(homeDir, ".glovecore", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}
	return ""
}
