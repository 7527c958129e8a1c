// Package storage resolves RawAttachment.StorageRef blobs against AWS S3,
// with optional AES-256-GCM envelope encryption and gzip compression,
// keyed by emailId/attachmentId.
package storage
