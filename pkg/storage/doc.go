// Package storage provides the key-value persistence abstraction used by
// the durable event queue, together with ready-made implementations:
// an in-memory store (the always-available fallback), a file-backed
// store for client hosts, an AES-GCM encrypting decorator for sensitive
// payloads, and a Redis-backed store for server-side hosts.
//
// All implementations are safe for concurrent use. Persistence failures
// are surfaced as errors for the caller to log; the pipeline treats
// storage as best-effort and keeps operating in memory when it fails.
package storage
