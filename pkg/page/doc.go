// Package page loads trees from XML page files.
//
// A page is either a full document
//
//	<page>
//	  <head>
//	    <option name="title" value="Shop"/>
//	  </head>
//	  <body>
//	    <menu>
//	      <button key="buy" label="Buy">Buy</button>
//	    </menu>
//	  </body>
//	</page>
//
// or a single bare element, which becomes the tree root. Element names map
// to node kinds, the key attribute becomes the node key, and every other
// attribute is kept as a string value in document order. Non-blank
// character data becomes a text child; inside a <text> element it becomes
// the content attribute instead.
//
// Watch reloads pages from a directory when they change on disk.
package page
