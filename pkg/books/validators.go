package books

import "mime/multipart"

type UploadBooksPayload struct {
	// DeclaredType applies to parts that don't carry their own Content-Type.
	DeclaredType string                  `form:"declared_type" json:"declared_type,omitempty" mod:"trim" validate:"max=200"`
	FormFiles    []*multipart.FileHeader `form:"-" json:"-"`
}
