// Package config loads Torua settings for the coordinator and storage nodes.
//
// # Sources
//
// Values are layered with koanf, later sources overriding earlier ones:
//
//	defaults  ->  YAML file (optional)  ->  TORUA_ environment variables
//
// Environment keys drop the prefix, are lower-cased, and use a double
// underscore for nesting, so TORUA_RING__REPLICATION_FACTOR=2 sets
// ring.replication_factor.
//
// # Keys
//
//	server.addr               coordinator listen address
//	log.level                 debug, info, warn or error
//	ring.partitioner          Murmur3Partitioner, RandomPartitioner, ByteOrderedPartitioner
//	ring.replication_factor   replicas per key, at least 1
//	health.interval           probe period, e.g. "5s"
//	health.timeout            per-probe timeout
//	health.max_failures       failures before a host is unhealthy
//	scan.splits_per_range     sub-ranges per owned range
//	scan.concurrency          parallel sub-range reads
//	node.id                   host UUID; random when empty
//	node.listen               node listen address
//	node.addr                 address announced to the coordinator
//	node.coordinator          coordinator base URL
//	node.datacenter           datacenter label
//	node.num_tokens           tokens per node, at least 1
//
// # Validation
//
// Load calls Validate, which reports every problem at once with
// errors.Join. It rejects an unknown partitioner or log level, health
// durations that do not parse or are not positive, a non-UUID node.id, and
// any count below 1 (replication factor, max failures, splits, concurrency,
// tokens per node).
//
// # Usage
//
//	cfg, err := config.Load(os.Getenv("TORUA_CONFIG"))
//	if err != nil {
//	    return err
//	}
//	logger, err := cfg.Log.NewLogger(os.Stderr)
package config
