// Package storage manages the per-user emote directories.
//
// A Manager is bound to one destination directory, typically
// <base_dir>/<display_name>. It answers whether an emote file already exists,
// hands out per-file locks so that the existence check and the write form one
// critical section, and writes files atomically through a temporary file and
// a rename.
//
// Usage:
//
//	manager, err := storage.NewManager(filepath.Join("useremotes", storage.SanitizeName(displayName)))
//	if err != nil {
//	    return err
//	}
//
//	unlock := manager.Lock("Kappa.png")
//	defer unlock()
//	if !manager.Exists("Kappa.png") {
//	    _, err = manager.Save(body, "Kappa.png")
//	}
package storage
