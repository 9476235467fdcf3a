package dto

// UploadImageDTO is used for incoming reference-image upload requests.
type UploadImageDTO struct {
	Filename string `json:"filename" validate:"required,max=255"`
}

// UploadImageResponseDTO carries the presigned upload grant.
type UploadImageResponseDTO struct {
	UploadURL   string `json:"upload_url"`
	PublicURL   string `json:"public_url"`
	StoragePath string `json:"storage_path"`
}
