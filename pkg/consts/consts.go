package consts

const (
	// Size of the boot sector at offset 0 of the disk.
	BOOT_SECTOR_SIZE = 512

	// Offset of the 16-bit boot signature inside the boot sector.
	BOOT_SIGNATURE_OFFSET = 510

	// Boot signature as read little-endian from BOOT_SIGNATURE_OFFSET (bytes 0x55 0xAA on disk).
	BOOT_SIGNATURE = 0xAA55

	// Maximum number of entries held by a partition table.
	MAX_TABLE_SIZE = 1024

	// Partition entry layout, little-endian.
	//  | name[32] | start_offset:u32 | size:u32 | type[32] |
	PARTITION_NAME_SIZE   = 32
	PARTITION_OFFSET_SIZE = 4
	PARTITION_SIZE_SIZE   = 4
	PARTITION_TYPE_SIZE   = 32
	PARTITION_ENTRY_SIZE  = PARTITION_NAME_SIZE + PARTITION_OFFSET_SIZE + PARTITION_SIZE_SIZE + PARTITION_TYPE_SIZE

	// Serialized size of a partition table filled to capacity.
	PARTITION_TABLE_SIZE = MAX_TABLE_SIZE * PARTITION_ENTRY_SIZE

	// Size of the whole MBR region when the partition table is written at capacity.
	MBR_SIZE = BOOT_SECTOR_SIZE + PARTITION_TABLE_SIZE

	// Padding byte for fixed-width text fields.
	NULL_BYTE = 0x00

	// FAT32 geometry used when formatting a new disk image.
	FAT32_SECTOR_SIZE         = 512
	FAT32_SECTORS_PER_CLUSTER = 8
	FAT32_CLUSTER_SIZE        = FAT32_SECTOR_SIZE * FAT32_SECTORS_PER_CLUSTER

	// Default size of a newly created disk image (64 MiB).
	DEFAULT_DISK_SIZE = 64 * 1024 * 1024

	// Chunk size used when zero-filling a new disk image.
	WRITE_CHUNK_SIZE = 1024 * 1024

	// Default partition type tag used by the shell.
	DEFAULT_PARTITION_TYPE = "primary"
)
