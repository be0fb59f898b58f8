package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kFloat
)

type keySpec struct {
	key   string
	typ   keyType
	env   string
	apply func(cfg *Config, v any)
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "COPYGEN_SERVER_PORT",
		apply: func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
	},
	{
		key: "llm.base_url", typ: kString, env: "COPYGEN_LLM_BASE_URL",
		apply: func(cfg *Config, v any) { cfg.LLM.BaseURL = v.(string) },
	},
	{
		key: "llm.gen_model", typ: kString, env: "COPYGEN_LLM_GEN_MODEL",
		apply: func(cfg *Config, v any) { cfg.LLM.GenModel = v.(string) },
	},
	{
		key: "llm.embed_model", typ: kString, env: "COPYGEN_LLM_EMBED_MODEL",
		apply: func(cfg *Config, v any) { cfg.LLM.EmbedModel = v.(string) },
	},
	{
		key: "storage.data_dir", typ: kString, env: "COPYGEN_STORAGE_DATA_DIR",
		apply: func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
	},
	{
		key: "retrieval.candidate_limit", typ: kInt, env: "COPYGEN_RETRIEVAL_CANDIDATE_LIMIT",
		apply: func(cfg *Config, v any) { cfg.Retrieval.CandidateLimit = v.(int) },
	},
	{
		key: "retrieval.top_k", typ: kInt, env: "COPYGEN_RETRIEVAL_TOP_K",
		apply: func(cfg *Config, v any) { cfg.Retrieval.TopK = v.(int) },
	},
	{
		key: "retrieval.min_similarity", typ: kFloat, env: "COPYGEN_RETRIEVAL_MIN_SIMILARITY",
		apply: func(cfg *Config, v any) { cfg.Retrieval.MinSimilarity = v.(float64) },
	},
	{
		key: "retrieval.min_ctr", typ: kFloat, env: "COPYGEN_RETRIEVAL_MIN_CTR",
		apply: func(cfg *Config, v any) { cfg.Retrieval.MinCTR = v.(float64) },
	},
	{
		key: "retrieval.min_conversion_rate", typ: kFloat, env: "COPYGEN_RETRIEVAL_MIN_CONVERSION_RATE",
		apply: func(cfg *Config, v any) { cfg.Retrieval.MinConversionRate = v.(float64) },
	},
	{
		key: "prompt.brand_tag", typ: kString, env: "COPYGEN_PROMPT_BRAND_TAG",
		apply: func(cfg *Config, v any) { cfg.Prompt.BrandTag = v.(string) },
	},
	{
		key: "log.level", typ: kString, env: "COPYGEN_LOG_LEVEL",
		apply: func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
	},
}

func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kFloat:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					s.apply(cfg, f)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse float from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
