package main

var opts struct {
	Cluster struct {
		Nodes    int    `long:"nodes" env:"NODES" description:"number of simulated nodes" default:"4"`
		Interval uint64 `long:"interval" env:"INTERVAL" description:"simulation tick (ms)" default:"3000"`
		Heights  uint64 `long:"heights" env:"HEIGHTS" description:"number of heights to play" default:"20"`
		Seed     int64  `long:"seed" env:"SEED" description:"rng seed for deterministic runs" default:"1"`
	} `group:"cluster" namespace:"cluster" env-namespace:"CLUSTER"`

	Snapshot struct {
		Path   string `long:"path" env:"PATH" description:"snapshot file path" default:"record.json"`
		Verify bool   `long:"verify" env:"VERIFY" description:"reload the snapshot and compare state hashes"`
	} `group:"snapshot" namespace:"snapshot" env-namespace:"SNAPSHOT"`

	Verbose bool `long:"verbose" env:"VERBOSE" description:"verbose mode"`
}
