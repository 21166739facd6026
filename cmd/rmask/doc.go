// Command rmask manages layered region masks stored as PNG save files.
//
// Saves live in a directory (see "rmask config show"). Each save is a
// viewable PNG with the editor state embedded, so any save can be listed,
// inspected, exported to individual layer images, turned into a combined
// regional prompt, or created from scratch with scripted brush and lasso
// strokes:
//
//	rmask draw --size 512x512 --lasso "1:40,40 200,40 200,200 40,200" \
//	    --stroke "2:300,300 400,420" --prompt "1=red car" --name car
//	rmask regions car
//	rmask export car --out ./car
package main
