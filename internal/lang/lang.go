package lang

import "strings"

// Language labels understood by the editor widget on the client side.
const (
	JavaScript = "javascript"
	Python     = "python"
	Java       = "java"
	CPP        = "cpp"
	HTML       = "html"
	PlainText  = "plaintext"
)

// Default is the language of the file seeded into every new room.
const Default = JavaScript

// SeedCode is the body of the default file a room starts with.
const SeedCode = `// Welcome to collaborative JS code editor
function hello() {
  console.log('Hello, world!');
}
hello();`

// FromFileName infers a language label from the extension after the last
// dot, compared case-insensitively. Unknown extensions and extensionless
// names fall back to plain text.
func FromFileName(fileName string) string {
	idx := strings.LastIndex(fileName, ".")
	if idx < 0 || idx == len(fileName)-1 {
		return PlainText
	}

	switch strings.ToLower(fileName[idx+1:]) {
	case "js":
		return JavaScript
	case "py":
		return Python
	case "java":
		return Java
	case "cpp":
		return CPP
	case "html":
		return HTML
	default:
		return PlainText
	}
}

// Template returns the starter body for a newly created file of the given
// language. Plain text files start empty.
func Template(language string) string {
	switch language {
	case JavaScript:
		return "console.log('Hello, world!')"
	case Python:
		return "def greet():\n    print(\"Hello!\")"
	case Java:
		return "public class Main {\npublic static void main(String[] args) {\nSystem.out.println(\"Hello, world!\");\n// You can call other methods here\ngreetUser(\"Alice\");\n}\n\npublic static void greetUser(String name) {\nSystem.out.println(\"Hello, \" + name + \"!\");\n}\n}"
	case CPP:
		return "#include <iostream>\n\nint main() {\n    std::cout << \"Hello, world!\" << std::endl;\n    return 0;\n}"
	case HTML:
		return "<!DOCTYPE html>\n<html>\n  <body>\n    <h1>Hello!</h1>\n  </body>\n</html>"
	default:
		return ""
	}
}
