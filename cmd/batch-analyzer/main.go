package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	batchanalyzer "github.com/menta2k/batch-analyzer"
	"github.com/menta2k/batch-analyzer/internal/config"
	"github.com/menta2k/batch-analyzer/internal/utils"
	"github.com/menta2k/batch-analyzer/pkg/client"
	"github.com/menta2k/batch-analyzer/pkg/detection"
	"github.com/menta2k/batch-analyzer/pkg/llamacpp"
	"github.com/menta2k/batch-analyzer/pkg/ollama"
	"github.com/menta2k/batch-analyzer/pkg/types"
)

func main() {
	var in, out, model, url, backend, configPath string
	var maxImages int
	var initConfig bool
	var analyze bool
	var sendFmt string
	var sendSize int
	var sendQ int

	flag.StringVar(&in, "in", "", "input image file or directory (jpg/png/gif/webp)")
	flag.StringVar(&out, "out", "", "output path for the aggregate JSON (default: stdout)")
	flag.StringVar(&configPath, "config", "", "config file path (flags override config values)")
	flag.BoolVar(&initConfig, "init-config", false, "write a default config file and exit")
	flag.IntVar(&maxImages, "max", 0, "maximum number of images in the batch")

	flag.BoolVar(&analyze, "analyze", false, "run object detection against a vision backend")
	flag.StringVar(&model, "model", "", "model name")
	flag.StringVar(&backend, "backend", "", "backend to use: ollama or llamacpp")
	flag.StringVar(&url, "url", "", "server URL (defaults: ollama=http://localhost:11435/api/chat, llamacpp=http://localhost:8080)")

	flag.StringVar(&sendFmt, "sendfmt", "", "format sent to the backend: jpg|png")
	flag.IntVar(&sendSize, "sendsize", -1, "max long side sent to the backend (px), 0=original")
	flag.IntVar(&sendQ, "sendq", 0, "JPEG quality for images sent to the backend (1-100)")

	flag.Parse()

	if initConfig {
		path := configPath
		if path == "" {
			path = config.GetConfigPath()
		}
		if err := config.Default().SaveToFile(path); err != nil {
			log.Fatal(err)
		}
		log.Printf("wrote %s", path)
		return
	}

	if in == "" {
		log.Fatalf("usage: %s -in image.jpg|dir [-max 10] [-analyze] [-backend ollama|llamacpp] [-url server_url] [-out stats.json]", filepath.Base(os.Args[0]))
	}

	if configPath == "" {
		if _, err := os.Stat(config.GetConfigPath()); err == nil {
			configPath = config.GetConfigPath()
		}
	}
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			log.Fatal(err)
		}
		cfg = loaded
	}
	if maxImages > 0 {
		cfg.Batch.MaxImages = maxImages
	}
	if model != "" {
		cfg.Vision.Model = model
	}
	if backend != "" {
		cfg.Vision.Backend = backend
	}
	if url != "" {
		cfg.Vision.URL = url
	}
	if sendFmt != "" {
		cfg.Send.Format = sendFmt
	}
	if sendSize >= 0 {
		cfg.Send.MaxDim = sendSize
	}
	if sendQ > 0 {
		cfg.Send.Quality = sendQ
	}
	if out != "" {
		cfg.Output.Path = out
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	paths, err := collectInputs(in)
	if err != nil {
		log.Fatal(err)
	}
	if len(paths) == 0 {
		log.Fatalf("no image files found under %s", in)
	}

	candidates := make([]types.FileInput, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("read %s: %v", path, err)
		}
		candidates = append(candidates, types.FileInput{
			Name:        filepath.Base(path),
			ContentType: http.DetectContentType(data),
			Size:        int64(len(data)),
			Data:        data,
		})
	}

	session := batchanalyzer.NewSessionWithCapacity(cfg.Batch.MaxImages)
	session.OnProgress(func(ev types.ProgressEvent) {
		log.Printf("decoded %d/%d", ev.Completed, ev.Total)
	})

	res := session.AddFiles(context.Background(), candidates)
	for _, f := range res.Failures {
		log.Printf("skipped %s: %v", f.Name, f.Err)
	}
	if res.Dropped > 0 {
		log.Printf("dropped %d candidate(s) (non-image or over capacity)", res.Dropped)
	}
	for _, img := range session.Images() {
		log.Printf("admitted %s %dx%d (%s)", img.Name, img.Width, img.Height, utils.FormatFileSize(img.Size))
	}

	if analyze {
		visionClient, err := newVisionClient(cfg.Vision)
		if err != nil {
			log.Fatal(err)
		}

		session.SetBackend(visionClient, cfg.Vision.Model)
		session.SetSendOptions(detection.SendOptions{
			Format:  cfg.Send.Format,
			MaxDim:  cfg.Send.MaxDim,
			Quality: cfg.Send.Quality,
		})

		result, err := session.Analyze(context.Background())
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("analyzed %d image(s) in %.1fs, %d distinct label(s)",
			result.Summary.TotalImages, result.Summary.ProcessingSecs, len(result.Summary.UniqueLabels))
	}

	vm := session.Aggregate()

	var js []byte
	if cfg.Output.Pretty {
		js, err = json.MarshalIndent(vm, "", "  ")
	} else {
		js, err = json.Marshal(vm)
	}
	if err != nil {
		log.Fatal(err)
	}

	if cfg.Output.Path == "" {
		fmt.Println(string(js))
		return
	}
	if dir := filepath.Dir(cfg.Output.Path); dir != "." {
		if err := utils.EnsureDir(dir); err != nil {
			log.Fatal(err)
		}
	}
	if err := os.WriteFile(cfg.Output.Path, js, 0o644); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s", cfg.Output.Path)
}

// newVisionClient builds the backend named by the config, filling in the
// per-backend default URL.
func newVisionClient(vc config.VisionConfig) (client.VisionClient, error) {
	switch vc.Backend {
	case "ollama":
		url := vc.URL
		if url == "" {
			url = "http://localhost:11435/api/chat"
		}
		return ollama.NewClient(url)
	case "llamacpp":
		url := vc.URL
		if url == "" {
			url = "http://localhost:8080"
		}
		return llamacpp.NewClient(url)
	default:
		return nil, fmt.Errorf("unknown backend: %s (use 'ollama' or 'llamacpp')", vc.Backend)
	}
}

// collectInputs expands a path into image file paths: a directory is walked
// recursively, a plain file is taken as-is.
func collectInputs(in string) ([]string, error) {
	info, err := os.Stat(in)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return utils.ListImageFiles(in)
	}
	return []string{in}, nil
}
