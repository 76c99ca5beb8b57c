package bootstrap

import (
	"flag"
	"strconv"

	"k8s.io/klog/v2"
)

// SetupLogging sets klog verbosity; see config.AppConfig.Verbosity.
func SetupLogging(verbosity int) {
	fs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(fs)
	_ = fs.Set("logtostderr", "true")
	_ = fs.Set("v", strconv.Itoa(verbosity))
}
