package container

import "macroscan/internal/document"

// oleVBAProjectPath is the stream holding the VBA project in a compound file.
const oleVBAProjectPath = "VBA/VBAProject.bin"

type locationKey struct {
	Kind      Kind
	Extension string
}

// locations maps (container kind, declared extension) to the internal path of
// the VBA project. New Office formats are supported by adding rows here.
var locations = map[locationKey]string{
	{OleCompound, document.ExtXLS}:  oleVBAProjectPath,
	{OleCompound, document.ExtXLSM}: oleVBAProjectPath,
	{OleCompound, document.ExtXLSB}: oleVBAProjectPath,
	{OleCompound, document.ExtDOC}:  oleVBAProjectPath,
	{OleCompound, document.ExtDOCM}: oleVBAProjectPath,
	{OleCompound, document.ExtPPTM}: oleVBAProjectPath,

	{ZipPackage, document.ExtXLSM}: "xl/vbaProject.bin",
	{ZipPackage, document.ExtXLSB}: "xl/vbaProject.bin",
	{ZipPackage, document.ExtDOCM}: "word/vbaProject.bin",
	{ZipPackage, document.ExtPPTM}: "ppt/vbaProject.bin",
	{ZipPackage, document.ExtDOC}:  "word/vbaProject.bin",
}

// macroFree lists package formats that cannot carry a VBA project.
var macroFree = map[string]bool{
	document.ExtXLSX: true,
	document.ExtDOCX: true,
	document.ExtPPTX: true,
}

// Location returns the internal VBA project path for a container kind and
// declared extension.
func Location(kind Kind, ext string) (string, bool) {
	p, ok := locations[locationKey{Kind: kind, Extension: ext}]
	return p, ok
}

// IsMacroFree reports whether ext names a format that cannot hold macros.
func IsMacroFree(ext string) bool {
	return macroFree[ext]
}
