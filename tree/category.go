package tree

// Category classifies files by extension for coloring and filtering.
type Category string

const (
	CategoryDocuments Category = "documents"
	CategoryImages    Category = "images"
	CategoryVideo     Category = "video"
	CategoryAudio     Category = "audio"
	CategoryArchive   Category = "archive"
	CategoryCode      Category = "code"
	CategoryData      Category = "data"
	CategorySystem    Category = "system"
	CategoryOther     Category = "other"
)

// Categories lists all categories in a fixed order, which is also used to break
// ties deterministically.
var Categories = []Category{
	CategoryDocuments,
	CategoryImages,
	CategoryVideo,
	CategoryAudio,
	CategoryArchive,
	CategoryCode,
	CategoryData,
	CategorySystem,
	CategoryOther,
}

var extensionCategories = map[string]Category{}

func init() {
	register(CategoryAudio, "mp3", "wav", "flac", "m4a", "ogg", "aac", "wma", "aiff", "alac", "opus")
	register(CategoryVideo, "mp4", "mkv", "avi", "mov", "wmv", "webm", "flv", "m4v", "mpeg", "mpg", "3gp", "vob")
	register(CategoryImages, "jpg", "jpeg", "png", "gif", "webp", "svg", "bmp", "ico", "tiff", "tif",
		"psd", "raw", "heic", "heif", "avif")
	register(CategoryDocuments, "pdf", "doc", "docx", "txt", "md", "rtf", "odt", "xls", "xlsx", "ppt",
		"pptx", "pages", "numbers", "key", "epub", "mobi")
	register(CategoryCode, "rs", "py", "js", "ts", "go", "java", "c", "cpp", "h", "rb", "php", "cs",
		"swift", "kt", "scala", "clj", "ex", "exs", "erl", "hs", "ml", "lua", "r", "jl", "nim", "zig",
		"vue", "svelte", "jsx", "tsx", "sh", "bash", "zsh", "fish", "ps1", "graphql", "proto", "hpp",
		"cc", "cxx", "hxx", "html", "htm", "css", "scss", "sass", "less", "pl", "pm")
	register(CategoryArchive, "zip", "tar", "gz", "rar", "7z", "bz2", "xz", "zst", "lz4", "lzma", "cab",
		"iso", "dmg", "pkg", "deb", "rpm", "tgz", "tbz2", "txz")
	register(CategoryData, "json", "xml", "yaml", "yml", "toml", "csv", "tsv", "sql", "db", "sqlite",
		"sqlite3", "parquet", "avro", "orc", "h5", "hdf5", "npy", "pkl", "log")
	register(CategorySystem, "so", "dll", "dylib", "sys", "exe", "bin", "o", "a", "lib", "ko", "msi",
		"app", "ini", "cfg", "conf", "plist", "lock", "tmp", "swp", "cache")
}

func register(category Category, extensions ...string) {
	for _, ext := range extensions {
		extensionCategories[ext] = category
	}
}

// CategoryOf returns the category of a lowercased extension without dot.
func CategoryOf(extension string) Category {
	if category, ok := extensionCategories[extension]; ok {
		return category
	}
	return CategoryOther
}

// Category returns the file category of a leaf node. Directories and symbolic
// links are classified as other.
func (node *Node) Category() Category {
	if node.IsDirectory || node.IsSymlink {
		return CategoryOther
	}
	return CategoryOf(node.Extension)
}
