package tile

// Stats counts what a Cache did since it was created.
type Stats struct {
	// Resident is the number of tiles currently resident.
	Resident int
	// Level is the decimation level of the last heavy update.
	Level int
	// Loaded and Evicted count tile loads and evictions.
	Loaded  int
	Evicted int
	// ReadFailures counts blocks the dataset failed to read.
	ReadFailures int
	// UploadFailures counts textures the backend failed to create.
	UploadFailures int
}
