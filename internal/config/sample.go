package config

// SampleDefinitions is the starter definitions file written by
// `bakman init`. It covers the common shapes: a plain single-version
// backup, a multi-version backup, and an encrypted disk mounted on the
// fly with keep-alive common steps.
const SampleDefinitions = `# bakman backup definitions
#
# A configuration names a backup procedure: steps shared by every part
# (common), plus named parts that can be run individually. A step mapping
# carries exactly one of mount, luks, lvm, command, copyFiles, rotate,
# rsync, or archive; keepAlive defers its release until all parts are
# done. A device is a partition number on the configuration's disk, an
# explicit device path, or, when omitted, the whole disk.

configurations:
  # Single-version backup of /home to a disk mounted before the run.
  - name: simpleBackup
    description: simple backup example
    disk: usb-some-disk-id
    parts:
      - name: home
        steps:
          - rsync: {source: home}

  # Multi-version backup of /home keeping 5 generations.
  - name: multiVersionBackup
    description: multi-version backup example
    disk: usb-some-disk-id
    parts:
      - name: home
        steps:
          - archive: {dest: home, keep: 5, sources: [/home/]}

  # Backup of / and /home onto a LUKS-encrypted disk attached and
  # mounted on the fly, keeping 3 generations, plus a single-version
  # backup of /var.
  - name: encryptedBackup
    description: backup to encrypted volume
    disk: usb-some-disk-id
    mountBase: /backup
    common:
      - luks: {name: main, device: 1, key: sample LUKS key password}
        keepAlive: true
      - mount: {device: /dev/mapper/encryptedBackup-main}
        keepAlive: true
    parts:
      - name: example
        steps:
          - archive: {dest: example, keep: 3, sources: [/, /home/]}
      - name: var
        steps:
          - archive: {dest: var, sources: [/var/]}
`
