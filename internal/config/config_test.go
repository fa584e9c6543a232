package config_test

import (
	"testing"

	"github.com/klasvik/prewarn/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.OpsAddr, convey.ShouldEqual, ":9090")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.PunchSource, convey.ShouldEqual, config.PunchSourceROC)
			convey.So(cfg.RosterSource, convey.ShouldEqual, config.RosterSourceFile)
			convey.So(cfg.Sound.Enabled, convey.ShouldBeTrue)
			convey.So(cfg.Sound.IntroTimeoutSeconds, convey.ShouldEqual, 10)
			convey.So(cfg.Sound.DefaultLanguage, convey.ShouldEqual, "sv")
			convey.So(cfg.ROC.FetchIntervalSeconds, convey.ShouldEqual, 10)
			convey.So(cfg.ROC.URL, convey.ShouldEqual, "http://roc.olresultat.se/getpunches.asp")
		})
	})
}
