package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultKeyTemplate  = "{host}.json"
	DefaultGeneratorID  = "VahtiFileIntegrityMonitor"
	DefaultResourceType = "AwsEc2Instance"
)

// setDefaults registers defaults for every key so AutomaticEnv can see them.
// patterns and severity have no default: both must be configured explicitly.
func setDefaults(v *viper.Viper) {
	v.SetDefault("match_mode", "regex")
	v.SetDefault("host_id_source", HostIDFromRecord)
	v.SetDefault("concurrency", 4)

	v.SetDefault("store.url", "")
	v.SetDefault("store.key_template", DefaultKeyTemplate)

	v.SetDefault("finding.account_id", "")
	v.SetDefault("finding.region", "")
	v.SetDefault("finding.generator_id", DefaultGeneratorID)
	v.SetDefault("finding.product_arn", "")
	v.SetDefault("finding.resource_type", DefaultResourceType)

	v.SetDefault("sink.type", SinkSecurityHub)
	v.SetDefault("sink.path", "")

	v.SetDefault("aws.region", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("aws.max_retries", 3)
	v.SetDefault("aws.timeout", 30*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("output.format", "table")
	v.SetDefault("output.no_color", false)
}
