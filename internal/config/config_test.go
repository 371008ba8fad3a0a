package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/trustgate/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.MaxBatchSize, convey.ShouldEqual, 500)
			convey.So(cfg.Reasoning.Timeout, convey.ShouldEqual, 15*time.Second)
			convey.So(cfg.Trust.Weights, convey.ShouldResemble, config.Weights{
				Source: 0.3, Recency: 0.2, Verification: 0.3, Community: 0.2,
			})
			convey.So(cfg.SafetyRules, convey.ShouldContainKey, "missing-source-url")
			convey.So(cfg.SafetyRules, convey.ShouldContainKey, "stale-event")
			convey.So(cfg.SafetyRules, convey.ShouldContainKey, "excessive-price")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		cases := map[string]func(c *config.Config){
			"empty addr":         func(c *config.Config) { c.Addr = "" },
			"zero batch size":    func(c *config.Config) { c.MaxBatchSize = 0 },
			"zero concurrency":   func(c *config.Config) { c.Concurrency = 0 },
			"zero timeout":       func(c *config.Config) { c.Reasoning.Timeout = 0 },
			"negative weight":    func(c *config.Config) { c.Trust.Weights.Recency = -0.1 },
			"zero floor":         func(c *config.Config) { c.Trust.RecencyFloor = 0 },
			"zero half life":     func(c *config.Config) { c.Trust.HalfLife = 0 },
			"host score above 1": func(c *config.Config) { c.Trust.HostScores["example.org"] = 1.5 },
			"only community weight": func(c *config.Config) {
				c.Trust.Weights = config.Weights{Community: 1}
			},
		}

		for name, mutate := range cases {
			convey.Convey("When it has "+name, func() {
				mutate(cfg)

				convey.Convey("Then validation fails with ErrInvalidConfig", func() {
					err := cfg.Validate()
					convey.So(err, convey.ShouldNotBeNil)
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				})
			})
		}
	})
}
