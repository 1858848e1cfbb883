package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/normanking/avatarpipeline/internal/chat"
	"github.com/normanking/avatarpipeline/internal/config"
	"github.com/normanking/avatarpipeline/internal/export"
	"github.com/normanking/avatarpipeline/internal/logging"
	"github.com/normanking/avatarpipeline/internal/pipeline"
	"github.com/normanking/avatarpipeline/internal/session"
	"github.com/normanking/avatarpipeline/internal/stage"
	"github.com/normanking/avatarpipeline/internal/stt"
	"github.com/normanking/avatarpipeline/internal/timeline"
	"github.com/normanking/avatarpipeline/internal/tts"
	"github.com/normanking/avatarpipeline/internal/viseme"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to config file")
		text       = flag.String("text", "Hello! Welcome to the talking avatar.", "input text to run through the pipeline")
		language   = flag.String("lang", "", "language hint (en, hi)")
		outPath    = flag.String("out", "", "write track-set JSON to this file instead of stdout")
	)
	flag.Parse()

	mgr, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg := mgr.Get()

	logger, err := logging.New(logging.Config{
		Dir:     cfg.Logging.Dir,
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
	})
	if err != nil {
		log.Fatalf("init logging: %v", err)
	}

	overrides := make([]viseme.Override, 0, len(cfg.Viseme.Overrides))
	for symbol, category := range cfg.Viseme.Overrides {
		overrides = append(overrides, viseme.Override{
			Symbol:   symbol,
			Category: viseme.Category(category),
		})
	}
	table := viseme.NewTable(overrides...)

	animator := timeline.NewSynthesizer(table, timeline.SmoothingConfig{
		GapEpsilon:     float64(cfg.Smoothing.GapEpsilonMs) / 1000,
		MergeThreshold: float64(cfg.Smoothing.MergeThresholdMs) / 1000,
		BlendWindow:    float64(cfg.Smoothing.BlendWindowMs) / 1000,
	})

	// The demo has no external recognizer or synthesizer; the rule
	// responder and estimating synthesizer stand in for both synthesis
	// paths so the pipeline is fully exercised offline. The synthesizer
	// goes through the serialized adapter the way a real single-instance
	// model would.
	responder := chat.NewRuleResponder(chat.NewHistory(chat.HistoryConfig{}))
	estimator := tts.NewEstimatingSynthesizer()
	serialized := stage.NewSerialized(tts.StageName, cfg.Session.QueueDepth,
		func(ctx context.Context, req *tts.SynthesizeRequest) (*tts.SynthesizeResult, error) {
			return estimator.Synthesize(ctx, req)
		})
	synth := tts.SynthesizerFunc(serialized.Invoke)

	orch := pipeline.New(
		logger,
		nil, // no recognizer: audio requests fail at recognition
		responder,
		synth,
		synth,
		stt.NewFilter(nil),
		animator,
		pipeline.Config{
			Timeouts: pipeline.Timeouts{
				Recognition: cfg.Pipeline.RecognitionTimeout,
				Response:    cfg.Pipeline.ResponseTimeout,
				Synthesis:   cfg.Pipeline.SynthesisTimeout,
			},
			FallbackText:  cfg.Pipeline.FallbackText,
			MinConfidence: cfg.Pipeline.MinConfidence,
		},
	)

	coord := session.New(logger, orch, session.Config{
		MaxInFlight: cfg.Session.MaxInFlight,
		QueueDepth:  cfg.Session.QueueDepth,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	env, err := coord.Do(ctx, "demo", &pipeline.Request{
		Mode:     pipeline.ModeText,
		Text:     *text,
		Language: *language,
	})
	if err != nil {
		log.Fatalf("pipeline: %v", err)
	}

	logger.Info().
		Str("response", env.ResponseText).
		Str("emotion", string(env.Emotion)).
		Int("keyframes", len(env.Timeline.Keyframes)).
		Float64("duration", env.TotalDuration).
		Msg("Pipeline run complete")

	data, err := export.Tracks(env.Timeline).JSON()
	if err != nil {
		log.Fatalf("export: %v", err)
	}

	if *outPath != "" {
		if err := os.WriteFile(*outPath, data, 0o644); err != nil {
			log.Fatalf("write %s: %v", *outPath, err)
		}
		return
	}
	fmt.Println(string(data))
}
