// Package worker contains the message processor that sits between the
// consuming channels and the output publisher.
//
// For every delivery the processor:
//
//  1. rejects it (no requeue) when the correlation id is missing;
//  2. parses the body, tolerating trailing commas, and rejects malformed
//     input or an unknown provider without calling any provider;
//  3. asks the provider for a completion, retrying transient failures with
//     exponential backoff (2s, 4s, 8s, 16s by default, 5 attempts);
//  4. enqueues the reply {"LlmResponse": ...} and acks the delivery.
//
// A failed completion is nacked with requeue when the failure is transient
// (see IsTransient). When the context is canceled mid-processing the
// delivery is left unsettled and the broker redelivers it after the channel
// closes.
//
// Configuration (prefix WORKER_):
//
//	WORKER_MAX_ATTEMPTS       total completion attempts per delivery (default 5)
//	WORKER_RETRY_BASE_DELAY   delay after the first failed attempt (default 2s)
package worker
