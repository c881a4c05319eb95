// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO": "0",
}

// Assembler is a single pass macro assembler for LC-3 assembly language.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of labels to addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.

	origin    int  // Origin address, or -1 before .ORIG
	ended     bool // Set by .END
	expansion int  // Macro expansions so far, for '@' labels
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// trapMap maps the trap service aliases.
var trapMap = map[string]CodeTrap{
	"GETC":  TRAP_GETC,
	"OUT":   TRAP_OUT,
	"PUTS":  TRAP_PUTS,
	"IN":    TRAP_IN,
	"PUTSP": TRAP_PUTSP,
	"HALT":  TRAP_HALT,
}

// mnemonics is the set of reserved instruction and directive names.
var mnemonics = map[string]bool{
	"ADD": true, "AND": true, "NOT": true,
	"BR": true, "BRN": true, "BRZ": true, "BRP": true,
	"BRNZ": true, "BRNP": true, "BRZP": true, "BRNZP": true,
	"JMP": true, "RET": true, "JSR": true, "JSRR": true,
	"LD": true, "LDI": true, "LDR": true, "LEA": true,
	"ST": true, "STI": true, "STR": true,
	"RTI": true, "TRAP": true,
	"GETC": true, "OUT": true, "PUTS": true, "IN": true, "PUTSP": true, "HALT": true,
	".ORIG": true, ".FILL": true, ".BLKW": true, ".STRINGZ": true, ".END": true,
}

var labelRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// isKeyword returns true if word is an instruction, directive, or macro.
func (asm *Assembler) isKeyword(word string) bool {
	if mnemonics[strings.ToUpper(word)] {
		return true
	}
	_, ok := asm.Macro[word]
	return ok
}

// valueOf returns the value of a simple word.
// Accepts #decimal, xHEX, bBINARY, and Go integer literals.
func (asm *Assembler) valueOf(word string) (value int, err error) {
	invert := false
	if len(word) > 1 && word[0] == '~' {
		invert = true
		word = word[1:]
	}

	if len(word) == 0 {
		err = ErrParseNumber(word)
		return
	}

	var v64 int64
	switch {
	case word[0] == '#':
		v64, err = strconv.ParseInt(word[1:], 10, 32)
	case len(word) > 1 && (word[0] == 'x' || word[0] == 'X'):
		v64, err = strconv.ParseInt(word[1:], 16, 32)
	case len(word) > 1 && (word[0] == 'b' || word[0] == 'B') && strings.Trim(word[1:], "01") == "":
		v64, err = strconv.ParseInt(word[1:], 2, 32)
	default:
		v64, err = strconv.ParseInt(word, 0, 32)
	}
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	value = int(v64)
	if invert {
		value = ^value
	}

	return
}

// fitSigned checks that value is representable in a bits wide field,
// and returns it masked to that width.
func fitSigned(value int, bits uint) (field uint16, err error) {
	lo := -(1 << (bits - 1))
	hi := (1 << bits) - 1
	if bits < 16 {
		hi = (1 << (bits - 1)) - 1
	}
	if value < lo || value > hi {
		err = ErrOffsetRange{Value: value, Bits: bits}
		return
	}

	field = uint16(value) & uint16((1<<bits)-1)
	return
}

// register decodes a register name.
func (asm *Assembler) register(word string) (reg int, err error) {
	if len(word) == 2 && (word[0] == 'r' || word[0] == 'R') && word[1] >= '0' && word[1] <= '7' {
		reg = int(word[1] - '0')
		return
	}

	err = ErrRegisterInvalid
	return
}

// registers decodes a list of register names.
func (asm *Assembler) registers(words ...string) (regs []int, err error) {
	for _, word := range words {
		var reg int
		reg, err = asm.register(word)
		if err != nil {
			return
		}
		regs = append(regs, reg)
	}

	return
}

// target decodes a literal value, or a label to be linked later.
func (asm *Assembler) target(word string) (value int, label string, err error) {
	value, err = asm.valueOf(word)
	if err == nil {
		return
	}

	if labelRe.MatchString(word) {
		err = nil
		label = word
	}

	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var equ int
		equ, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt(equ)
	}
	err = nil
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = int(st_int64)
	return
}

// stripComment removes a ';' comment, ignoring ';' in strings and
// character literals.
func stripComment(line string) string {
	inQuote := false
	for n := 0; n < len(line); n++ {
		switch ch := line[n]; {
		case inQuote && ch == '\\':
			n++
		case ch == '"':
			inQuote = !inQuote
		case !inQuote && ch == '\'':
			if end := strings.IndexByte(line[n+1:], '\''); end >= 0 && end <= 2 {
				n += end + 1
			}
		case !inQuote && ch == ';':
			return line[:n]
		}
	}

	return line
}

// mapUnquoted applies fn to every part of line outside of a "string".
func mapUnquoted(line string, fn func(string) string) string {
	var out strings.Builder
	start := 0
	inQuote := false
	for n := 0; n < len(line); n++ {
		switch {
		case inQuote && line[n] == '\\':
			n++
		case line[n] == '"' && !inQuote:
			out.WriteString(fn(line[start:n]))
			start = n
			inQuote = true
		case line[n] == '"' && inQuote:
			out.WriteString(line[start : n+1])
			start = n + 1
			inQuote = false
		}
	}

	if inQuote {
		out.WriteString(line[start:])
	} else {
		out.WriteString(fn(line[start:]))
	}

	return out.String()
}

// splitWords splits a line on whitespace and commas, keeping "strings"
// as single words.
func splitWords(line string) (words []string, err error) {
	n := 0
	for n < len(line) {
		ch := line[n]
		switch {
		case ch == ' ' || ch == '\t' || ch == ',':
			n++
		case ch == '"':
			end := n + 1
			for ; end < len(line) && line[end] != '"'; end++ {
				if line[end] == '\\' {
					end++
				}
			}
			if end >= len(line) {
				err = ErrStringSyntax
				return
			}
			words = append(words, line[n:end+1])
			n = end + 1
		default:
			end := n
			for end < len(line) && !strings.ContainsRune(" \t,", rune(line[end])) {
				end++
			}
			words = append(words, line[n:end])
			n = end
		}
	}

	return
}

var charRe = regexp.MustCompile(`'\\?[^']'`)
var parenRe = regexp.MustCompile(`\$\([^\$]*\)`)

// parseLine parses a single line as an opcode.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	line = mapUnquoted(line, func(text string) string {
		// Do 'x' evaluations
		text = charRe.ReplaceAllStringFunc(text, func(word string) string {
			str := word[1 : len(word)-1]
			if str[0] == '\\' {
				str = str[1:]
				switch str {
				case "\\":
					str = "\\"
				case "n":
					str = "\n"
				case "r":
					str = "\r"
				case "t":
					str = "\t"
				case "e":
					str = "\033"
				case "0":
					str = "\000"
				default:
					return word
				}
			} else if len(str) != 1 {
				return word
			}
			return fmt.Sprintf("%v", str[0])
		})

		// Do $() evaluations
		return parenRe.ReplaceAllStringFunc(text, func(str string) string {
			value, _err := asm.parenEval(str[2 : len(str)-1])
			if _err != nil {
				err = _err
			}
			return fmt.Sprintf("%#v", value)
		})
	})
	if err != nil {
		return
	}

	words, err = splitWords(line)
	if err != nil {
		return
	}

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if strings.EqualFold(words[0], ".equ") {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		if len(word) == 0 || word[0] == '"' {
			continue
		}

		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	// Label, with or without a trailing ':'
	if word := words[0]; !asm.isKeyword(word) {
		label := strings.TrimSuffix(word, ":")
		if !labelRe.MatchString(label) || asm.isKeyword(label) {
			err = ErrLabelInvalid
			return
		}

		if asm.origin < 0 {
			err = ErrOrigMissing
			return
		}

		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]int, 16)
		}
		asm.Label[label] = asm.currentIp()
		words = words[1:]
	}

	if len(words) == 0 {
		return
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = words[1+n]
		}
		defer func() { asm.Equate = old_equate }()

		// '@' makes labels local to this expansion.
		asm.expansion++
		local := fmt.Sprintf("%v_%v_", name, asm.expansion)
		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", local)
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = ErrMacro{Macro: name, Line: lineno, Err: err}
				err = ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}

			err = asm.parseWords(words, macro.LineNo+n)
			if err != nil {
				err = ErrMacro{Macro: name, Line: lineno, Err: err}
				err = ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// currentIp gets the current address.
func (asm *Assembler) currentIp() int {
	if len(asm.Opcode) == 0 {
		return asm.origin
	}

	last := asm.Opcode[len(asm.Opcode)-1]

	return last.Ip + len(last.Codes)
}

// Parse parses an input stream into a Program containing opcodes.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {

	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	clear(asm.Label)
	asm.Opcode = asm.Opcode[:0]
	asm.origin = -1
	asm.ended = false
	asm.expansion = 0
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for !asm.ended && scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		line = strings.TrimSpace(stripComment(text))
		words := strings.Fields(line)

		// .macro NAME arg...
		if len(words) > 0 && strings.EqualFold(words[0], ".macro") {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && strings.EqualFold(words[0], ".endm") {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	if err = scanner.Err(); err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	var op *Opcode
	op, err = asm.link()
	if err != nil {
		if op != nil {
			lineno = op.LineNo
			line = strings.Join(op.Words, " ")
		}
		return
	}

	prog = &Program{
		Origin:  PC_START,
		Opcodes: slices.Clone(asm.Opcode),
	}
	if asm.origin >= 0 {
		prog.Origin = uint16(asm.origin)
	}

	return
}

// link resolves the labels of the assembled opcodes. On failure, op is
// the opcode that could not be linked.
func (asm *Assembler) link() (op *Opcode, err error) {
	for n := range asm.Opcode {
		op = &asm.Opcode[n]

		if len(op.LinkLabel) == 0 {
			continue
		}
		label := op.LinkLabel
		ip, ok := asm.Label[label]
		if !ok || len(op.Codes) < 1 {
			err = ErrLabelMissing(label)
			return
		}
		linked := &op.Codes[len(op.Codes)-1]
		if op.LinkBits == 0 {
			*linked = Code(ip)
			continue
		}
		var field uint16
		field, err = fitSigned(ip-(op.Ip+len(op.Codes)), op.LinkBits)
		if err != nil {
			return
		}
		*linked |= Code(field)
	}

	op = nil
	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var codes []Code
	var label string
	var bits uint

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := words

	defer func() {
		if err != nil || len(codes) == 0 {
			return
		}
		ip := asm.currentIp()
		if ip+len(codes) > MEMORY_SIZE {
			err = ErrProgramTooLarge
			return
		}
		opcode := Opcode{LineNo: lineno, Ip: ip, Words: initial_words, Codes: codes, LinkLabel: label, LinkBits: bits}
		asm.Opcode = append(asm.Opcode, opcode)
	}()

	name := strings.ToUpper(words[0])
	args := words[1:]

	if name == ".ORIG" {
		if asm.origin >= 0 {
			err = ErrOrigDuplicate
			return
		}
		if len(args) != 1 {
			err = ErrOpcodeValueMissing
			return
		}
		var value int
		value, err = asm.valueOf(args[0])
		if err != nil {
			return
		}
		if value < 0 || value >= MEMORY_SIZE {
			err = ErrOffsetRange{Value: value, Bits: 16}
			return
		}
		asm.origin = value
		return
	}

	if name == ".END" {
		asm.ended = true
		return
	}

	if asm.origin < 0 {
		err = ErrOrigMissing
		return
	}

	// Argument count check.
	want := func(count int) bool {
		switch {
		case len(args) < count:
			err = ErrOpcodeValueMissing
		case len(args) > count:
			err = ErrOpcodeExtraArgs
		}
		return err == nil
	}

	// PC relative operand, literal offset or label.
	pcOffset := func(word string, width uint) (field uint16) {
		var value int
		value, label, err = asm.target(word)
		if err != nil {
			return
		}
		if len(label) != 0 {
			bits = width
			return
		}
		field, err = fitSigned(value, width)
		return
	}

	if vector, ok := trapMap[name]; ok {
		if want(0) {
			codes = append(codes, MakeCodeTrap(vector))
		}
		return
	}

	if strings.HasPrefix(name, "BR") && mnemonics[name] {
		var cond uint16
		for _, ch := range name[2:] {
			switch ch {
			case 'N':
				cond |= COND_N
			case 'Z':
				cond |= COND_Z
			case 'P':
				cond |= COND_P
			}
		}
		if cond == 0 {
			cond = COND_NZP
		}
		if !want(1) {
			return
		}
		offset := pcOffset(args[0], 9)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeBr(cond, offset))
		return
	}

	switch name {
	case ".FILL":
		if !want(1) {
			return
		}
		var value int
		value, label, err = asm.target(args[0])
		if err != nil {
			return
		}
		var field uint16
		field, err = fitSigned(value, 16)
		if err != nil {
			return
		}
		codes = append(codes, Code(field))
	case ".BLKW":
		if len(args) < 1 {
			err = ErrOpcodeValueMissing
			return
		}
		if len(args) > 2 {
			err = ErrOpcodeExtraArgs
			return
		}
		var count int
		count, err = asm.valueOf(args[0])
		if err != nil {
			return
		}
		if count < 1 || count > MEMORY_SIZE {
			err = ErrOffsetRange{Value: count, Bits: 16}
			return
		}
		var fill uint16
		if len(args) == 2 {
			var value int
			value, err = asm.valueOf(args[1])
			if err != nil {
				return
			}
			fill, err = fitSigned(value, 16)
			if err != nil {
				return
			}
		}
		codes = make([]Code, count)
		for n := range codes {
			codes[n] = Code(fill)
		}
	case ".STRINGZ":
		if !want(1) {
			return
		}
		var text string
		text, err = strconv.Unquote(args[0])
		if err != nil || args[0][0] != '"' {
			err = ErrStringSyntax
			return
		}
		for _, ch := range []byte(text) {
			codes = append(codes, Code(ch))
		}
		codes = append(codes, 0)
	case "ADD", "AND":
		op := OP_ADD
		if name == "AND" {
			op = OP_AND
		}
		if !want(3) {
			return
		}
		var regs []int
		regs, err = asm.registers(args[0], args[1])
		if err != nil {
			return
		}
		sr2, reg_err := asm.register(args[2])
		if reg_err == nil {
			codes = append(codes, MakeCodeReg(op, regs[0], regs[1], sr2))
			return
		}
		var value int
		value, err = asm.valueOf(args[2])
		if err != nil {
			return
		}
		var imm uint16
		imm, err = fitSigned(value, 5)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeImm(op, regs[0], regs[1], imm))
	case "NOT":
		if !want(2) {
			return
		}
		var regs []int
		regs, err = asm.registers(args...)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeNot(regs[0], regs[1]))
	case "LD", "LDI", "ST", "STI", "LEA":
		op := map[string]CodeOp{"LD": OP_LD, "LDI": OP_LDI, "ST": OP_ST, "STI": OP_STI, "LEA": OP_LEA}[name]
		if !want(2) {
			return
		}
		var dr int
		dr, err = asm.register(args[0])
		if err != nil {
			return
		}
		offset := pcOffset(args[1], 9)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodePc(op, dr, offset))
	case "LDR", "STR":
		if !want(3) {
			return
		}
		var regs []int
		regs, err = asm.registers(args[0], args[1])
		if err != nil {
			return
		}
		var value int
		value, err = asm.valueOf(args[2])
		if err != nil {
			return
		}
		var offset uint16
		offset, err = fitSigned(value, 6)
		if err != nil {
			return
		}
		if name == "LDR" {
			codes = append(codes, MakeCodeLdr(regs[0], regs[1], offset))
		} else {
			codes = append(codes, MakeCodeStr(regs[0], regs[1], offset))
		}
	case "JMP", "JSRR":
		if !want(1) {
			return
		}
		var base int
		base, err = asm.register(args[0])
		if err != nil {
			return
		}
		if name == "JMP" {
			codes = append(codes, MakeCodeJmp(base))
		} else {
			codes = append(codes, MakeCodeJsrr(base))
		}
	case "RET":
		if want(0) {
			codes = append(codes, MakeCodeJmp(REG_LINK))
		}
	case "JSR":
		if !want(1) {
			return
		}
		offset := pcOffset(args[0], 11)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeJsr(offset))
	case "RTI":
		if want(0) {
			codes = append(codes, MakeCodeRti())
		}
	case "TRAP":
		if !want(1) {
			return
		}
		var value int
		value, err = asm.valueOf(args[0])
		if err != nil {
			return
		}
		if value < 0 || value > 0xff {
			err = ErrOffsetRange{Value: value, Bits: 8}
			return
		}
		codes = append(codes, MakeCodeTrap(CodeTrap(value)))
	case "":
		err = ErrOpcodeMissing
	default:
		err = ErrInstructionInvalid
	}

	return
}
