package utils

// ToPtr возвращает указатель на копию v. Нужен для patch-структур, где nil
// означает "поле не трогать".
func ToPtr[T any](v T) *T {
	return &v
}
