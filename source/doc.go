// Package source provides broker metadata clients implementing types.TopicMetadata.
//
//   - Kafka: Queries a Kafka cluster with segmentio/kafka-go
//   - Static: Fixed topic layout for tests and local runs
package source
