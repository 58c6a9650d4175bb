// Package config loads the two inputs bakman works from: the optional
// tool settings file and the backup definitions file.
//
// # Settings
//
// Settings are the tool's own knobs (definitions file location, mount
// base, exclude file, run log, report recipient). They come from
// ~/.config/bakman/config.yaml or the current directory, can be
// overridden through BAKMAN_* environment variables, and fall back to
// built-in defaults. Call [Init] once at startup, then [Load]:
//
//	config.Init()
//	settings, err := config.Load(flagPath)
//
// # Definitions
//
// Definitions declare the backup configurations themselves. They are
// data, not code: a YAML (or TOML) document parsed with strict field
// checking into the backup entity model.
//
//	configurations:
//	  - name: bakdisk
//	    description: weekly backup to encrypted disk
//	    disk: ata-WDC-disk-id
//	    common:
//	      - luks: {name: crypt, device: 2, keyFile: /root/bakdisk.key}
//	        keepAlive: true
//	      - mount: {device: /dev/mapper/bakdisk-crypt}
//	        keepAlive: true
//	    parts:
//	      - name: system
//	        steps:
//	          - archive: {dest: system, keep: 3, sources: [/etc, /usr/local]}
//
// Each step mapping carries exactly one variant key (mount, luks, lvm,
// command, copyFiles, rotate, rsync, archive) plus an optional keepAlive
// flag. A device is an integer partition index on the configuration's
// disk or an explicit device path; omitted, it means the whole disk.
// [FindDefinitions] locates the file, [LoadDefinitions] builds a locked
// registry of configurations from it, converting .toml files through
// internal/translate first.
//
// # Validation
//
// Unknown fields, steps with zero or several variant keys, missing
// required fields, and duplicate configuration or part names are all
// rejected at load time, wrapping ErrInvalidConfig where the shape of
// the document is at fault.
package config
