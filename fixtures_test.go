package borrowck

import "github.com/BarrensZeppelin/borrowck/mir"

// FixtureProgram declares the structs and functions shared by the tests:
//
//	struct Pair { f: i32, g: i32 }
//	struct Box { v: i32 }
//	struct Two { a: Box, b: Box }
//	#[derive(Copy)] struct Point { x: i32, y: i32 }
//	struct Holder<'p> { r: &'p mut i32 }
//	fn id<'p>(x: &'p i32) -> &'p i32
//	fn consume(b: Box)
func FixtureProgram() *mir.Program {
	prog := mir.NewProgram()
	prog.AddStruct(&mir.StructDecl{
		Name:   "Pair",
		Fields: []mir.Field{{Name: "f", Type: mir.I32}, {Name: "g", Type: mir.I32}},
	})
	prog.AddStruct(&mir.StructDecl{
		Name:   "Box",
		Fields: []mir.Field{{Name: "v", Type: mir.I32}},
	})
	prog.AddStruct(&mir.StructDecl{
		Name:   "Two",
		Fields: []mir.Field{{Name: "a", Type: mir.Struct("Box")}, {Name: "b", Type: mir.Struct("Box")}},
	})
	prog.AddStruct(&mir.StructDecl{
		Name:   "Point",
		Fields: []mir.Field{{Name: "x", Type: mir.I32}, {Name: "y", Type: mir.I32}},
		Copy:   true,
	})

	p := mir.Named("p")
	prog.AddStruct(&mir.StructDecl{
		Name:      "Holder",
		Lifetimes: []mir.Lifetime{p},
		Fields:    []mir.Field{{Name: "r", Type: mir.Ref(p, mir.Mut, mir.I32)}},
	})
	prog.AddFunc(&mir.FnSig{
		Name:     "id",
		Generics: []mir.Lifetime{p},
		Params:   []mir.Type{mir.Ref(p, mir.Shared, mir.I32)},
		Ret:      mir.Ref(p, mir.Shared, mir.I32),
	})
	prog.AddFunc(&mir.FnSig{
		Name:   "consume",
		Params: []mir.Type{mir.Struct("Box")},
		Ret:    mir.Unit,
	})
	return prog
}

func analyzeBody(body *mir.Body) (*Result, error) {
	return Analyze(AnalysisConfig{Body: body})
}
