package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"playtrace/config"
	"playtrace/shazam"
	"playtrace/utils"
	"playtrace/wav"
)

// buildProfile layers DefaultAudiobookProfile or DefaultMusicProfile
// depending on FINGERPRINT_PROFILE, then replaces its EngineConfig with
// cfg when cfg differs from config.Default() (i.e. a loaded config.yaml
// changed something); fields the file left unset carry config.Default()
// values, not the profile's.
func buildProfile(cfg config.EngineConfig) shazam.Profile {
	profile := shazam.DefaultMusicProfile()
	if strings.EqualFold(utils.GetEnv("FINGERPRINT_PROFILE", "music"), "audiobook") {
		profile = shazam.DefaultAudiobookProfile()
	}
	if cfg != config.Default() {
		profile.EngineConfig = cfg
	}
	return profile
}

func find(filePath string) {
	color.Cyan("[find] fingerprinting %s...", filePath)

	audio, err := os.ReadFile(filePath)
	if err != nil {
		color.Red("error reading file: %v", err)
		return
	}

	start := time.Now()
	outcome, err := eng.Recognize(context.Background(), audio)
	if err != nil {
		color.Red("error recognizing: %v", err)
		return
	}

	if outcome.Positive == nil {
		color.Yellow("no match found (%s): %s", time.Since(start), outcome.Reason)
		return
	}

	songs, err := eng.ListSongs(context.Background())
	title, artist := "unknown", "unknown"
	if err == nil {
		for _, s := range songs {
			if s.ID == outcome.Positive.SongID {
				title, artist = s.Title, s.Artist
				break
			}
		}
	}

	color.Green("match: %s by %s", title, artist)
	fmt.Printf("  votes: %d, input_conf: %.1f%%, db_conf: %.1f%%, offset: %.2fs\n",
		outcome.Positive.Votes, outcome.Positive.InputConf, outcome.Positive.DBConf, outcome.Positive.OffsetSeconds)
	fmt.Printf("  took %s\n", time.Since(start))
}

func serve(protocol, port string) {
	protocol = strings.ToLower(protocol)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/index", handleIndex)
	mux.HandleFunc("/api/match", handleMatch)
	mux.HandleFunc("/api/stats", handleStats)
	mux.HandleFunc("/api/entries", handleEntries)

	mux.Handle("/", http.FileServer(http.Dir("static")))

	handler := requestLogger(corsMiddleware(mux))

	color.Cyan("starting server on port %s (%s)", port, protocol)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		color.Red("server error: %v", err)
		os.Exit(1)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: 200}
		next.ServeHTTP(rec, r)

		if strings.HasPrefix(r.URL.Path, "/api/") {
			fmt.Printf("[http] %s %s -> %d (%s)\n", r.Method, r.URL.Path, rec.status, time.Since(start))
		}
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func erase(songsDir string, dbOnly bool, all bool) {
	if err := eng.DeleteAll(context.Background()); err != nil {
		color.Red("error clearing database: %v", err)
	} else {
		color.Green("database cleared")
	}

	if !all {
		fmt.Println("erase complete")
		return
	}

	err := filepath.Walk(songsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".wav", ".m4a", ".mp3", ".flac", ".ogg":
			return os.Remove(path)
		}
		return nil
	})
	if err != nil {
		color.Red("error cleaning files in %s: %v", songsDir, err)
	}
	fmt.Println("audio files cleared")
	fmt.Println("erase complete")
}

func save(path string, force bool) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		color.Red("error: %v", err)
		return
	}

	if !fileInfo.IsDir() {
		if err := saveEntry(path, force); err != nil {
			color.Red("error saving (%v): %v", path, err)
		}
		return
	}

	var filePaths []string
	filepath.Walk(path, func(fp string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			filePaths = append(filePaths, fp)
		}
		return nil
	})

	processFilesConcurrently(filePaths, force)
}

func processFilesConcurrently(filePaths []string, force bool) {
	maxWorkers := runtime.NumCPU() / 2
	numFiles := len(filePaths)

	if numFiles == 0 {
		return
	}
	if numFiles < maxWorkers {
		maxWorkers = numFiles
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	bar := progressbar.Default(int64(numFiles), "indexing")

	jobs := make(chan string, numFiles)
	results := make(chan error, numFiles)

	for w := 0; w < maxWorkers; w++ {
		go func() {
			for fp := range jobs {
				err := saveEntry(fp, force)
				bar.Add(1)
				results <- err
			}
		}()
	}

	for _, fp := range filePaths {
		jobs <- fp
	}
	close(jobs)

	successCount, errorCount := 0, 0
	for i := 0; i < numFiles; i++ {
		if err := <-results; err != nil {
			color.Red("error: %v", err)
			errorCount++
		} else {
			successCount++
		}
	}

	fmt.Printf("\nprocessed %d files: %d successful, %d failed\n", numFiles, successCount, errorCount)
}

func saveEntry(filePath string, force bool) error {
	meta, err := wav.GetMetadata(filePath)

	title, artist := "", ""
	if err == nil {
		title, artist = meta.Title, meta.Artist
	}

	if title == "" {
		title = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	}
	if artist == "" {
		artist = "unknown"
	}

	ctx := context.Background()

	if existing, exists, _ := eng.GetSongByKey(ctx, title, artist); exists && !force {
		return fmt.Errorf("'%s' by '%s' already registered (id=%d)", title, artist, existing.ID)
	}

	song, err := eng.RegisterSong(ctx, title, artist)
	if err != nil {
		return fmt.Errorf("failed to register: %v", err)
	}

	audio, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %v", err)
	}

	report, err := eng.Ingest(ctx, song.ID, audio)
	if err != nil {
		_ = eng.DeleteSong(ctx, song.ID)
		return fmt.Errorf("failed to fingerprint: %v", err)
	}

	fmt.Printf("indexed '%s' by '%s' (%d fingerprints, %.0fs)\n", title, artist, report.FingerprintsWritten, report.DurationSeconds)
	return nil
}
