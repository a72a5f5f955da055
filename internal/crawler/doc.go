// Package crawler defines the types, capability interfaces and error
// taxonomy shared by the booking crawl pipeline: seeding, enumeration,
// page storage, extraction and row output.
package crawler
