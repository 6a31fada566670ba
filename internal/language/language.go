// Package language holds the static toolchain bindings for every supported
// language: which file name the source is written to, how it is compiled (if
// at all), and how the result is run.
//
// The table is configuration, not state. Nothing here touches the filesystem
// or spawns processes; the executors in internal/executor do that.
package language

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Language is the canonical identifier of a supported language.
type Language string

const (
	Java       Language = "java"
	Python     Language = "python"
	JavaScript Language = "javascript"
	Cpp        Language = "cpp"
)

// aliases maps every accepted spelling (already case-folded) to a Language.
// The desktop UI used "Java", "Python", "JavaScript", "C++"; the HTTP server
// used lower-case names and "cpp".
var aliases = map[string]Language{
	"java":       Java,
	"python":     Python,
	"python3":    Python,
	"py":         Python,
	"javascript": JavaScript,
	"js":         JavaScript,
	"node":       JavaScript,
	"cpp":        Cpp,
	"c++":        Cpp,
	"cxx":        Cpp,
}

// Parse resolves a user-supplied tag to a Language. The second return value
// is false when the tag is not recognised.
func Parse(tag string) (Language, bool) {
	// A Caser is stateful, so each call gets its own.
	key := cases.Fold().String(strings.TrimSpace(tag))
	lang, ok := aliases[key]
	return lang, ok
}

// Toolchain describes how one language is built and run.
//
// Command templates are argv slices. The placeholders {dir}, {src}, {bin} and
// {class} are replaced by Expand before the process is started.
type Toolchain struct {
	Language    Language `json:"language" yaml:"language"`
	DisplayName string   `json:"displayName" yaml:"displayName"`
	Compile     []string `json:"compile,omitempty" yaml:"compile,omitempty"`
	Run         []string `json:"run" yaml:"run"`
	Template    string   `json:"template" yaml:"template"`
}

// Compiled reports whether the toolchain has a separate compile step.
func (t Toolchain) Compiled() bool {
	return len(t.Compile) > 0
}

// Source is a program ready to be written to disk: the (possibly rewritten)
// text and the file name the toolchain expects.
type Source struct {
	FileName string
	Code     string
	// Class is the Java entry class. Empty for other languages.
	Class string
}

var defaultToolchains = map[Language]Toolchain{
	Java: {
		Language:    Java,
		DisplayName: "Java",
		Compile:     []string{"javac", "{src}"},
		Run:         []string{"java", "-cp", "{dir}", "{class}"},
		Template:    "public class Main {\n    public static void main(String[] args) {\n        System.out.println(\"Hello CodeSphere!\");\n    }\n}",
	},
	Python: {
		Language:    Python,
		DisplayName: "Python",
		Run:         []string{"python3", "{src}"},
		Template:    "# Python Code\nprint(\"Hello CodeSphere!\")",
	},
	JavaScript: {
		Language:    JavaScript,
		DisplayName: "JavaScript",
		Run:         []string{"node", "{src}"},
		Template:    "// JavaScript Code\nconsole.log(\"Hello CodeSphere!\");",
	},
	Cpp: {
		Language:    Cpp,
		DisplayName: "C++",
		Compile:     []string{"g++", "-o", "{bin}", "{src}"},
		Run:         []string{"{bin}"},
		Template:    "#include <iostream>\nusing namespace std;\n\nint main() {\n    cout << \"Hello CodeSphere!\" << endl;\n    return 0;\n}",
	},
}

// Registry is an immutable set of toolchains. The zero value is not usable;
// build one with NewRegistry.
type Registry struct {
	toolchains map[Language]Toolchain
}

// Override replaces the compiler and/or runtime binary of one language.
// Empty fields keep the default.
type Override struct {
	Compiler string `mapstructure:"compiler"`
	Runtime  string `mapstructure:"runtime"`
}

// NewRegistry returns the default toolchains with the given binary overrides
// applied. Override keys go through Parse, so "c++" and "cpp" are equivalent.
func NewRegistry(overrides map[string]Override) (*Registry, error) {
	r := &Registry{toolchains: make(map[Language]Toolchain, len(defaultToolchains))}
	for lang, tc := range defaultToolchains {
		tc.Compile = append([]string(nil), tc.Compile...)
		tc.Run = append([]string(nil), tc.Run...)
		r.toolchains[lang] = tc
	}

	for tag, o := range overrides {
		lang, ok := Parse(tag)
		if !ok {
			return nil, fmt.Errorf("language: override for unknown language %q", tag)
		}
		tc := r.toolchains[lang]
		if o.Compiler != "" {
			if !tc.Compiled() {
				return nil, fmt.Errorf("language: %s has no compile step", lang)
			}
			tc.Compile[0] = o.Compiler
		}
		// C++ runs the artifact itself, so there is no runtime binary to swap.
		if o.Runtime != "" && lang != Cpp {
			tc.Run[0] = o.Runtime
		}
		r.toolchains[lang] = tc
	}
	return r, nil
}

// Default returns a registry with no overrides.
func Default() *Registry {
	r, _ := NewRegistry(nil)
	return r
}

// Lookup resolves a tag and returns its toolchain.
func (r *Registry) Lookup(tag string) (Toolchain, bool) {
	lang, ok := Parse(tag)
	if !ok {
		return Toolchain{}, false
	}
	tc, ok := r.toolchains[lang]
	return tc, ok
}

// All returns every toolchain ordered by language name.
func (r *Registry) All() []Toolchain {
	out := make([]Toolchain, 0, len(r.toolchains))
	for _, tc := range r.toolchains {
		out = append(out, tc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Language < out[j].Language })
	return out
}

var publicClass = regexp.MustCompile(`public\s+class\s+(\w+)`)

// Prepare turns raw user code into a Source for this toolchain.
//
// Java code is saved under its public class name. Code with no public class
// is treated as the body of main and wrapped in a Main class. C++ code with
// no #include gets iostream and the std namespace.
func (t Toolchain) Prepare(code string) Source {
	switch t.Language {
	case Java:
		if m := publicClass.FindStringSubmatch(code); m != nil {
			return Source{FileName: m[1] + ".java", Code: code, Class: m[1]}
		}
		return Source{FileName: "Main.java", Code: wrapJavaMain(code), Class: "Main"}
	case Cpp:
		if !strings.Contains(code, "#include") {
			code = "#include <iostream>\nusing namespace std;\n\n" + code
		}
		return Source{FileName: "main.cpp", Code: code}
	case Python:
		return Source{FileName: "main.py", Code: code}
	case JavaScript:
		return Source{FileName: "main.js", Code: code}
	}
	return Source{FileName: "main.txt", Code: code}
}

func wrapJavaMain(body string) string {
	lines := strings.Split(body, "\n")
	for i, l := range lines {
		lines[i] = "        " + l
	}
	return "public class Main {\n    public static void main(String[] args) {\n" +
		strings.Join(lines, "\n") +
		"\n    }\n}"
}

// Paths are the concrete locations substituted into command templates.
type Paths struct {
	Dir    string // working directory of the invocation
	Source string // absolute path of the source file
	Binary string // absolute path of the compiled artifact (C++)
	Class  string // Java entry class
}

// Expand substitutes placeholders in an argv template.
func Expand(argv []string, p Paths) []string {
	r := strings.NewReplacer(
		"{dir}", p.Dir,
		"{src}", p.Source,
		"{bin}", p.Binary,
		"{class}", p.Class,
	)
	out := make([]string, len(argv))
	for i, a := range argv {
		out[i] = r.Replace(a)
	}
	return out
}
