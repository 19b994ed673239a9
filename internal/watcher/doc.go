// Package watcher reports changes to a small set of files, such as the
// schema and the hierarchy configuration, so long-running processes can
// reload them.
//
// Parent directories are watched with fsnotify rather than the files
// themselves: editors and FileStore replace files by rename, which would
// silently detach a watch on the old inode. When fsnotify is unavailable the
// watcher falls back to polling file metadata. Bursts of events for the same
// file are coalesced by a Debouncer before delivery.
package watcher
