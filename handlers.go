package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"playtrace/utils"
	"playtrace/wav"
)

const maxUploadSize = 5000 << 20 // 5 GB

type indexResponse struct {
	Title           string `json:"title"`
	Author          string `json:"author"`
	Fingerprints    int    `json:"fingerprints"`
	StorageEstimate string `json:"storageEstimate"`
	DurationSec     int    `json:"durationSec"`
}

type matchResponse struct {
	Title     string  `json:"title"`
	Author    string  `json:"author"`
	Votes     int     `json:"votes"`
	InputConf float64 `json:"inputConf"`
	DBConf    float64 `json:"dbConf"`
	OffsetSec float64 `json:"offsetSec"`
}

type statsResponse struct {
	TotalEntries      uint64 `json:"totalEntries"`
	TotalFingerprints uint64 `json:"totalFingerprints"`
	StorageEstimate   string `json:"storageEstimate"`
}

type entryResponse struct {
	ID     uint32 `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	log.Printf("[error] %d: %s", status, msg)
	writeJSON(w, status, map[string]string{"error": msg})
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

func logMemUsage(label string) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	log.Printf("[mem] %s: alloc=%s, sys=%s, heap_in_use=%s",
		label, formatBytes(int64(m.Alloc)), formatBytes(int64(m.Sys)), formatBytes(int64(m.HeapInuse)))
}

func saveUploadedFile(r *http.Request) (string, string, int64, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", "", 0, fmt.Errorf("no file provided: %v", err)
	}
	defer file.Close()

	if err := utils.CreateFolder("tmp"); err != nil {
		return "", "", 0, fmt.Errorf("failed to create tmp dir: %v", err)
	}

	tmpPath := filepath.Join("tmp", header.Filename)
	dst, err := os.Create(tmpPath)
	if err != nil {
		return "", "", 0, fmt.Errorf("failed to create temp file: %v", err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, file)
	if err != nil {
		return "", "", 0, fmt.Errorf("failed to write file: %v", err)
	}

	return tmpPath, header.Filename, written, nil
}

func handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	reqStart := time.Now()
	log.Printf("[index] received request from %s", r.RemoteAddr)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	tmpPath, filename, fileSize, err := saveUploadedFile(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer os.Remove(tmpPath)

	log.Printf("[index] file saved: %s (%s)", filename, formatBytes(fileSize))

	title := r.FormValue("title")
	author := r.FormValue("author")

	if meta, metaErr := wav.GetMetadata(tmpPath); metaErr != nil {
		log.Printf("[index] warning: could not read metadata from %s: %v", filename, metaErr)
	} else {
		if author == "" {
			author = meta.Artist
		}
		if title == "" {
			title = meta.Title
		}
	}

	if title == "" {
		title = strings.TrimSuffix(filename, filepath.Ext(filename))
	}
	if author == "" {
		author = "unknown"
	}

	log.Printf("[index] title=%q, author=%q", title, author)

	ctx := r.Context()

	if _, exists, _ := eng.GetSongByKey(ctx, title, author); exists {
		writeError(w, http.StatusConflict, fmt.Sprintf("'%s' by '%s' already exists", title, author))
		return
	}

	song, err := eng.RegisterSong(ctx, title, author)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to register song")
		return
	}

	audio, err := os.ReadFile(tmpPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read uploaded file")
		return
	}

	logMemUsage("before processing")
	report, err := eng.Ingest(ctx, song.ID, audio)
	if err != nil {
		_ = eng.DeleteSong(ctx, song.ID)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	logMemUsage("after processing")

	resp := indexResponse{
		Title:           title,
		Author:          author,
		Fingerprints:    int(report.FingerprintsWritten),
		StorageEstimate: formatBytes(int64(report.FingerprintsWritten) * 20),
		DurationSec:     int(report.DurationSeconds),
	}

	log.Printf("[index] completed %q: %d fingerprints, %s total time", title, report.FingerprintsWritten, time.Since(reqStart))
	writeJSON(w, http.StatusOK, resp)
}

func handleMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	reqStart := time.Now()
	log.Printf("[match] received request from %s", r.RemoteAddr)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	tmpPath, filename, fileSize, err := saveUploadedFile(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer os.Remove(tmpPath)

	log.Printf("[match] file saved: %s (%s)", filename, formatBytes(fileSize))

	audio, err := os.ReadFile(tmpPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read uploaded file")
		return
	}

	outcome, err := eng.Recognize(r.Context(), audio)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("recognize error: %v", err))
		return
	}

	if outcome.Positive == nil {
		log.Printf("[match] no match (%s): %s", time.Since(reqStart), outcome.Reason)
		writeJSON(w, http.StatusOK, map[string]any{"match": nil, "reason": outcome.Reason})
		return
	}

	title, author := "unknown", "unknown"
	if songs, err := eng.ListSongs(r.Context()); err == nil {
		for _, s := range songs {
			if s.ID == outcome.Positive.SongID {
				title, author = s.Title, s.Artist
				break
			}
		}
	}

	log.Printf("[match] completed in %s: %s by %s", time.Since(reqStart), title, author)
	writeJSON(w, http.StatusOK, map[string]any{
		"match": matchResponse{
			Title:     title,
			Author:    author,
			Votes:     outcome.Positive.Votes,
			InputConf: outcome.Positive.InputConf,
			DBConf:    outcome.Positive.DBConf,
			OffsetSec: outcome.Positive.OffsetSeconds,
		},
		"totalMs": outcome.Positive.TotalMs,
	})
}

func handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	totalSongs, totalFP, err := eng.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "stats error")
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		TotalEntries:      totalSongs,
		TotalFingerprints: totalFP,
		StorageEstimate:   formatBytes(int64(totalFP) * 20),
	})
}

func handleEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	songs, err := eng.ListSongs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list entries")
		return
	}

	entries := make([]entryResponse, 0, len(songs))
	for _, s := range songs {
		entries = append(entries, entryResponse{ID: s.ID, Title: s.Title, Author: s.Artist})
	}

	writeJSON(w, http.StatusOK, entries)
}
