package model

// Annotation is song metadata such as the author or title. Annotations can
// head the song or appear between strophes.
type Annotation interface {
	Item

	// IsChordAnnotation reports whether the annotation describes chords
	// (capo, tuning) rather than the song itself.
	IsChordAnnotation() bool

	// Format renders the annotation as "Key<delimiter>Value".
	Format(delimiter string) string
}

// AuthorAnnotation names an author of the song.
type AuthorAnnotation struct {
	Name string
}

func (AuthorAnnotation) isItem() {}

func (AuthorAnnotation) IsChordAnnotation() bool { return false }

func (a AuthorAnnotation) Format(delimiter string) string {
	return "Author" + delimiter + a.Name
}

// TitleAnnotation holds the song title.
type TitleAnnotation struct {
	Title string
}

func (TitleAnnotation) isItem() {}

func (TitleAnnotation) IsChordAnnotation() bool { return false }

func (a TitleAnnotation) Format(delimiter string) string {
	return "Title" + delimiter + a.Title
}

// GenericAnnotation is any other key/value annotation.
type GenericAnnotation struct {
	Key   string
	Value string
}

func (GenericAnnotation) isItem() {}

func (GenericAnnotation) IsChordAnnotation() bool { return false }

func (a GenericAnnotation) Format(delimiter string) string {
	return a.Key + delimiter + a.Value
}

// AnnotationFor builds the typed annotation for a key: "Author" and
// "Title" (any case) map to their own kinds, anything else is generic.
func AnnotationFor(key, value string) Annotation {
	switch normalizeKey(key) {
	case "author":
		return AuthorAnnotation{Name: value}
	case "title":
		return TitleAnnotation{Title: value}
	default:
		return GenericAnnotation{Key: key, Value: value}
	}
}
